package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	orderTransitions *prometheus.CounterVec
	reservations     *prometheus.CounterVec
	ticketsIssued    prometheus.Counter
	validations      *prometheus.CounterVec
	reclaimedOrders  prometheus.Counter
	paymentCalls     *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil *Metrics is valid and records nothing.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		orderTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_transitions_total",
				Help: "Order status transitions by target status",
			},
			[]string{"status"},
		),
		reservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_reservations_total",
				Help: "Inventory ledger reservation attempts",
			},
			[]string{"result"},
		),
		ticketsIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tickets_issued_total",
				Help: "Tickets created by the issuer",
			},
		),
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_validations_total",
				Help: "Door validation outcomes",
			},
			[]string{"result"},
		),
		reclaimedOrders: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reclaimer_orders_cancelled_total",
				Help: "Stale orders cancelled by the expiry reclaimer",
			},
		),
		paymentCalls: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_provider_call_duration_seconds",
				Help:    "Latency of payment provider calls",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"operation", "result"},
		),
	}
}

func (m *Metrics) OrderTransitioned(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ReservationAttempted(result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) TicketsIssued(n int) {
	if m == nil {
		return
	}
	m.ticketsIssued.Add(float64(n))
}

func (m *Metrics) TicketValidated(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) OrderReclaimed() {
	if m == nil {
		return
	}
	m.reclaimedOrders.Inc()
}

func (m *Metrics) PaymentCall(operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.paymentCalls.WithLabelValues(operation, result).Observe(took.Seconds())
}
