package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
	"go.uber.org/zap"
)

type ReclaimerConfig struct {
	Interval  time.Duration
	Threshold time.Duration
	BatchSize int
}

// ExpiryReclaimer cancels abandoned orders and returns their units to sale.
// Every cancellation is a conditional transition, so several reclaimers (or a
// reclaimer racing a confirmation) never release the same order twice.
type ExpiryReclaimer struct {
	orders  ports.OrderRepository
	svc     *OrderService
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     ReclaimerConfig
}

func NewExpiryReclaimer(orders ports.OrderRepository, svc *OrderService, logger *zap.Logger, m *metrics.Metrics, cfg ReclaimerConfig) *ExpiryReclaimer {
	if cfg.Interval == 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 30 * time.Minute
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ExpiryReclaimer{
		orders:  orders,
		svc:     svc,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
	}
}

func (r *ExpiryReclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("Expiry reclaimer started", zap.Duration("interval", r.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Expiry reclaimer stopped")
			return
		case now := <-ticker.C:
			r.Sweep(ctx, now)
		}
	}
}

// Sweep reclaims every expired order and returns how many it cancelled.
// Stale PENDING orders and lapsed checkouts are paged separately, so orders
// left in place (provider unreachable, failed cancel) never hold back the
// rest.
func (r *ExpiryReclaimer) Sweep(ctx context.Context, now time.Time) int {
	var stats sweepStats

	r.drain(ctx, "pending", func(after uuid.UUID) ([]domain.Order, error) {
		return r.orders.ListStalePending(ctx, now.Add(-r.cfg.Threshold), after, r.cfg.BatchSize)
	}, func(order *domain.Order) {
		r.reclaim(ctx, order, &stats)
	})

	r.drain(ctx, "checkout", func(after uuid.UUID) ([]domain.Order, error) {
		return r.orders.ListLapsedCheckouts(ctx, now, after, r.cfg.BatchSize)
	}, func(order *domain.Order) {
		r.reclaimCheckout(ctx, order, &stats)
	})

	if stats.found > 0 {
		r.logger.Info("Expiry sweep finished",
			zap.Int("found", stats.found),
			zap.Int("cancelled", stats.cancelled),
			zap.Int("confirmed", stats.confirmed),
			zap.Int("skipped", stats.skipped),
		)
	}

	return stats.cancelled
}

type sweepStats struct {
	found, cancelled, confirmed, skipped int
}

// drain walks list page by page until a short page or a cancelled context.
func (r *ExpiryReclaimer) drain(ctx context.Context, kind string, list func(after uuid.UUID) ([]domain.Order, error), each func(*domain.Order)) {
	after := uuid.Nil
	for ctx.Err() == nil {
		page, err := list(after)
		if err != nil {
			r.logger.Error("Failed to list expired orders", zap.String("kind", kind), zap.Error(err))
			return
		}

		for i := range page {
			each(&page[i])
		}
		if len(page) < r.cfg.BatchSize {
			return
		}
		after = page[len(page)-1].ID
	}
}

// reclaimCheckout asks the provider first: the buyer may have paid just
// before the session lapsed.
func (r *ExpiryReclaimer) reclaimCheckout(ctx context.Context, order *domain.Order, stats *sweepStats) {
	if order.PaymentSessionID == "" {
		r.reclaim(ctx, order, stats)
		return
	}

	outcome, err := r.svc.sessionOutcome(ctx, order.PaymentSessionID)
	if err != nil {
		stats.found++
		stats.skipped++
		return
	}
	if !outcome.Paid {
		r.reclaim(ctx, order, stats)
		return
	}

	stats.found++
	if _, err := r.svc.markPaid(ctx, order, outcome); err != nil {
		r.logger.Warn("Failed to confirm paid order during sweep",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}
	stats.confirmed++
}

func (r *ExpiryReclaimer) reclaim(ctx context.Context, order *domain.Order, stats *sweepStats) {
	stats.found++

	_, won, err := r.svc.cancel(ctx, order, "expired")
	if err != nil {
		r.logger.Warn("Failed to reclaim expired order",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return
	}
	if won {
		stats.cancelled++
		r.metrics.OrderReclaimed()
	}
}
