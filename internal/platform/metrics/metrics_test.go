package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrderTransitioned("PAID")
	m.OrderTransitioned("PAID")
	m.ReservationAttempted("insufficient")
	m.TicketsIssued(3)
	m.TicketValidated("ok")
	m.OrderReclaimed()
	m.PaymentCall("create_session", errors.New("boom"), 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orderTransitions.WithLabelValues("PAID")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues("insufficient")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reclaimedOrders))
	assert.Equal(t, 1, testutil.CollectAndCount(m.paymentCalls))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OrderTransitioned("PAID")
		m.ReservationAttempted("ok")
		m.TicketsIssued(1)
		m.TicketValidated("ok")
		m.OrderReclaimed()
		m.PaymentCall("get_session", nil, time.Millisecond)
	})
}
