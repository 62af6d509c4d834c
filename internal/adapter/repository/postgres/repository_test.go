package postgres_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/repository/postgres"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/platform/database"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RepositorySuite struct {
	suite.Suite

	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *sql.DB

	events  *postgres.EventRepository
	ledger  *postgres.InventoryLedger
	orders  *postgres.OrderRepository
	tickets *postgres.TicketRepository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed repository tests in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcpostgres.Run(
		s.ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("ticket_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = database.NewPostgresDB(s.ctx, database.Config{
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(s.db))

	s.events = postgres.NewEventRepository(s.db)
	s.ledger = postgres.NewInventoryLedger(s.db)
	s.orders = postgres.NewOrderRepository(s.db)
	s.tickets = postgres.NewTicketRepository(s.db)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE tickets, order_items, orders, ticket_types, events CASCADE`)
	s.Require().NoError(err)
}

func (s *RepositorySuite) seed(available int) (*domain.Event, uuid.UUID) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	event := &domain.Event{
		ID:        uuid.New(),
		Title:     "Warehouse Rave",
		Venue:     "Dock 9",
		StartsAt:  now.Add(48 * time.Hour),
		EndsAt:    now.Add(54 * time.Hour),
		Status:    domain.EventPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	typeID := uuid.New()
	event.TicketTypes = []domain.TicketType{{
		ID:                typeID,
		EventID:           event.ID,
		Name:              "GA",
		UnitPrice:         decimal.RequireFromString("45.00"),
		Currency:          "USD",
		TotalQuantity:     available,
		AvailableQuantity: available,
		CreatedAt:         now,
		UpdatedAt:         now,
	}}
	s.Require().NoError(s.events.CreateEvent(s.ctx, event))

	return event, typeID
}

func (s *RepositorySuite) newOrder(event *domain.Event, typeID uuid.UUID, quantity int, createdAt time.Time) *domain.Order {
	orderID := uuid.New()
	order := &domain.Order{
		ID:       orderID,
		Number:   "ORD-" + orderID.String()[:8],
		UserID:   uuid.New(),
		Attendee: domain.Attendee{Name: "Grace Hopper", Email: "grace@example.com"},
		Items: []domain.LineItem{{
			ID:             uuid.New(),
			OrderID:        orderID,
			EventID:        event.ID,
			TicketTypeID:   typeID,
			TicketTypeName: "GA",
			Quantity:       quantity,
			UnitPrice:      decimal.RequireFromString("45.00"),
			Currency:       "USD",
		}},
		Currency:  "USD",
		Status:    domain.OrderPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	order.CalculateTotal()
	s.Require().NoError(s.orders.CreateOrder(s.ctx, order))

	return order
}

func (s *RepositorySuite) TestEventRoundTrip() {
	event, typeID := s.seed(100)

	got, err := s.events.GetEvent(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.Title, got.Title)
	s.Require().Len(got.TicketTypes, 1)
	s.True(decimal.RequireFromString("45").Equal(got.TicketTypes[0].UnitPrice))

	listed, err := s.events.ListEvents(s.ctx, domain.EventPublished)
	s.Require().NoError(err)
	s.Len(listed, 1)

	s.Require().NoError(s.events.UpdateEventStatus(s.ctx, event.ID, domain.EventPublished, domain.EventPostponed))
	s.ErrorIs(s.events.UpdateEventStatus(s.ctx, event.ID, domain.EventPublished, domain.EventCancelled), domain.ErrStatusChanged)
	s.ErrorIs(s.events.UpdateEventStatus(s.ctx, uuid.New(), domain.EventDraft, domain.EventPublished), domain.ErrEventNotFound)

	_, err = s.events.GetTicketType(s.ctx, uuid.New())
	s.ErrorIs(err, domain.ErrTicketTypeNotFound)

	s.Require().NoError(s.events.SetTicketTypeCapacity(s.ctx, typeID, 120))
	s.Require().NoError(s.ledger.Reserve(s.ctx, typeID, 1))
	s.ErrorIs(s.events.SetTicketTypeCapacity(s.ctx, typeID, 10), domain.ErrTicketTypeSold)
}

func (s *RepositorySuite) TestReserveNeverOversells() {
	_, typeID := s.seed(20)

	var ok, insufficient atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ledger.Reserve(s.ctx, typeID, 1)
			if err == nil {
				ok.Add(1)
			} else if s.ErrorIs(err, domain.ErrInsufficientInventory) {
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(20), ok.Load())
	s.Equal(int32(10), insufficient.Load())

	tt, err := s.events.GetTicketType(s.ctx, typeID)
	s.Require().NoError(err)
	s.Equal(0, tt.AvailableQuantity)
	s.True(tt.HasSold)
}

func (s *RepositorySuite) TestReleaseCappedAtTotal() {
	_, typeID := s.seed(5)

	s.Require().NoError(s.ledger.Reserve(s.ctx, typeID, 3))
	s.Require().NoError(s.ledger.Release(s.ctx, typeID, 10))

	tt, err := s.events.GetTicketType(s.ctx, typeID)
	s.Require().NoError(err)
	s.Equal(5, tt.AvailableQuantity)

	s.ErrorIs(s.ledger.Reserve(s.ctx, uuid.New(), 1), domain.ErrTicketTypeNotFound)
}

func (s *RepositorySuite) TestCheckConstraintGuardsCounter() {
	_, typeID := s.seed(5)

	_, err := s.db.ExecContext(s.ctx, `UPDATE ticket_types SET available_quantity = -1 WHERE id = $1`, typeID)

	s.Error(err)
}

func (s *RepositorySuite) TestOrderTransitions() {
	event, typeID := s.seed(10)
	now := time.Now().UTC().Truncate(time.Microsecond)
	order := s.newOrder(event, typeID, 2, now)

	dup := *order
	dup.ID = uuid.New()
	s.ErrorIs(s.orders.CreateOrder(s.ctx, &dup), domain.ErrDuplicateNumber)

	expires := now.Add(30 * time.Minute)
	processing, err := s.orders.TransitionOrder(s.ctx, order.ID, domain.OrderTransition{
		From:             []domain.OrderStatus{domain.OrderPending},
		To:               domain.OrderProcessing,
		At:               now,
		SessionID:        "cs_pg",
		CheckoutURL:      "https://pay.test/cs_pg",
		SessionExpiresAt: &expires,
	})
	s.Require().NoError(err)
	s.Equal(domain.OrderProcessing, processing.Status)
	s.Require().Len(processing.Items, 1)
	s.Equal(2, processing.Items[0].Quantity)

	bySession, err := s.orders.GetOrderBySession(s.ctx, "cs_pg")
	s.Require().NoError(err)
	s.Equal(order.ID, bySession.ID)

	pay := domain.OrderTransition{
		From:       []domain.OrderStatus{domain.OrderPending, domain.OrderProcessing},
		To:         domain.OrderPaid,
		At:         now,
		PaymentRef: "pi_pg",
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.orders.TransitionOrder(s.ctx, order.ID, pay); err == nil {
				wins.Add(1)
			} else {
				s.ErrorIs(err, domain.ErrStatusChanged)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())

	paid, err := s.orders.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderPaid, paid.Status)
	s.Equal("pi_pg", paid.PaymentRef)
	s.Equal("cs_pg", paid.PaymentSessionID)
	s.NotNil(paid.PaidAt)

	_, err = s.orders.TransitionOrder(s.ctx, uuid.New(), pay)
	s.ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *RepositorySuite) TestListExpiredOrders() {
	event, typeID := s.seed(10)
	now := time.Now().UTC()

	stale := []uuid.UUID{
		s.newOrder(event, typeID, 1, now.Add(-time.Hour)).ID,
		s.newOrder(event, typeID, 1, now.Add(-2*time.Hour)).ID,
		s.newOrder(event, typeID, 1, now.Add(-3*time.Hour)).ID,
	}
	s.newOrder(event, typeID, 1, now)

	lapsed := now.Add(-time.Minute)
	abandoned := s.newOrder(event, typeID, 1, now)
	_, err := s.orders.TransitionOrder(s.ctx, abandoned.ID, domain.OrderTransition{
		From:             []domain.OrderStatus{domain.OrderPending},
		To:               domain.OrderProcessing,
		At:               now,
		SessionID:        "cs_lapsed",
		SessionExpiresAt: &lapsed,
	})
	s.Require().NoError(err)

	var got []uuid.UUID
	after := uuid.Nil
	for {
		page, err := s.orders.ListStalePending(s.ctx, now.Add(-30*time.Minute), after, 2)
		s.Require().NoError(err)
		for _, o := range page {
			got = append(got, o.ID)
		}
		if len(page) < 2 {
			break
		}
		after = page[len(page)-1].ID
	}
	s.ElementsMatch(stale, got)

	checkouts, err := s.orders.ListLapsedCheckouts(s.ctx, now, uuid.Nil, 10)
	s.Require().NoError(err)
	s.Require().Len(checkouts, 1)
	s.Equal(abandoned.ID, checkouts[0].ID)

	checkouts, err = s.orders.ListLapsedCheckouts(s.ctx, now, abandoned.ID, 10)
	s.Require().NoError(err)
	s.Empty(checkouts)
}

func (s *RepositorySuite) TestTicketsIssueAndRedeem() {
	event, typeID := s.seed(10)
	now := time.Now().UTC().Truncate(time.Microsecond)
	order := s.newOrder(event, typeID, 2, now)
	line := order.Items[0]

	build := func(unit int, number string) domain.Ticket {
		return domain.Ticket{
			ID:             uuid.New(),
			Number:         number,
			Code:           "code-" + number,
			OrderID:        order.ID,
			LineItemID:     line.ID,
			UnitIndex:      unit,
			EventID:        event.ID,
			TicketTypeID:   typeID,
			TicketTypeName: "GA",
			OwnerID:        order.UserID,
			Attendee:       order.Attendee,
			UnitPrice:      line.UnitPrice,
			Currency:       "USD",
			Status:         domain.TicketValid,
			IssuedAt:       now,
			UpdatedAt:      now,
		}
	}

	n, err := s.tickets.CreateTickets(s.ctx, []domain.Ticket{build(0, "TKT-A"), build(1, "TKT-B")})
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.tickets.CreateTickets(s.ctx, []domain.Ticket{build(0, "TKT-C")})
	s.Require().NoError(err)
	s.Equal(0, n)

	_, err = s.tickets.CreateTickets(s.ctx, []domain.Ticket{build(5, "TKT-A")})
	s.ErrorIs(err, domain.ErrDuplicateNumber)

	issued, err := s.tickets.ListTicketsByOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(issued, 2)

	ids := []uuid.UUID{issued[0].ID, issued[1].ID}
	s.Require().NoError(s.orders.AttachTickets(s.ctx, order.ID, ids))
	s.ErrorIs(s.orders.AttachTickets(s.ctx, order.ID, []uuid.UUID{uuid.New()}), domain.ErrInvariantViolation)

	withTickets, err := s.orders.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.ElementsMatch(ids, withTickets.TicketIDs)

	found, err := s.tickets.FindTicket(s.ctx, "code-TKT-B")
	s.Require().NoError(err)
	s.Equal("TKT-B", found.Number)

	_, err = s.tickets.FindTicket(s.ctx, "TKT-")
	s.ErrorIs(err, domain.ErrTicketNotFound)

	used, err := s.tickets.MarkUsed(s.ctx, found.ID, now, "gate-3")
	s.Require().NoError(err)
	s.Equal(domain.TicketUsed, used.Status)
	s.Equal("gate-3", used.UsedBy)

	_, err = s.tickets.MarkUsed(s.ctx, found.ID, now, "gate-4")
	s.ErrorIs(err, domain.ErrStatusChanged)

	moved, err := s.tickets.SetOrderTicketsStatus(s.ctx, order.ID, domain.TicketRefunded)
	s.Require().NoError(err)
	s.Equal(1, moved)
}
