package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedTickets(t *testing.T, f *fixture, quantity int) []domain.Ticket {
	t.Helper()

	paid := f.paidOrder(t, quantity)
	tickets, err := f.store.ListTicketsByOrder(context.Background(), paid.ID)
	require.NoError(t, err)
	require.Len(t, tickets, quantity)
	return tickets
}

func TestValidate_SecondScanReportsOriginalUse(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	ticket := issuedTickets(t, f, 2)[0]

	used, err := f.validator.Validate(ctx, "gate-1", ticket.Number, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.TicketUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	assert.Equal(t, "gate-1", used.UsedBy)

	again, err := f.validator.Validate(ctx, "gate-2", ticket.Number, nil)

	require.ErrorIs(t, err, domain.ErrTicketAlreadyUsed)
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	var conflict *domain.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.UsedAt)
	assert.True(t, used.UsedAt.Equal(*conflict.UsedAt))
	assert.Equal(t, "gate-1", conflict.UsedBy)
	assert.Equal(t, ticket.ID, again.ID)
}

func TestValidate_ByCode(t *testing.T) {
	f := newFixture(t, 10)
	ticket := issuedTickets(t, f, 1)[0]

	used, err := f.validator.Validate(context.Background(), "gate-1", ticket.Code, &f.eventID)

	require.NoError(t, err)
	assert.Equal(t, ticket.ID, used.ID)
}

func TestValidate_ConcurrentScansRedeemOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	ticket := issuedTickets(t, f, 1)[0]

	var ok, alreadyUsed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.validator.Validate(ctx, "gate", ticket.Number, nil)
			if err == nil {
				ok.Add(1)
			} else if assert.ErrorIs(t, err, domain.ErrTicketAlreadyUsed) {
				alreadyUsed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), alreadyUsed.Load())
}

func TestValidate_Rejections(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	ticket := issuedTickets(t, f, 1)[0]

	_, err := f.validator.Validate(ctx, "gate", "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.validator.Validate(ctx, "gate", " "+ticket.Number+" ", nil)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)

	_, err = f.validator.Validate(ctx, "gate", "TKT-000000-nothing", nil)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)

	// Lookup is exact, never a prefix match.
	_, err = f.validator.Validate(ctx, "gate", ticket.Number[:len(ticket.Number)-1], nil)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)

	other := uuid.New()
	_, err = f.validator.Validate(ctx, "gate", ticket.Number, &other)
	assert.ErrorIs(t, err, domain.ErrEventMismatch)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := f.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketValid, stored.Status)
}

func TestValidate_RefundedTicket(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	ticket := issuedTickets(t, f, 1)[0]

	_, err := f.orders.RefundOrder(ctx, ticket.OrderID, "cancelled show")
	require.NoError(t, err)

	_, err = f.validator.Validate(ctx, "gate", ticket.Number, nil)

	assert.ErrorIs(t, err, domain.ErrTicketRefunded)
}
