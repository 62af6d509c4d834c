package notifier

import (
	"context"

	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"go.uber.org/zap"
)

// LogNotifier writes the notification to the log instead of a broker.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPaid(_ context.Context, order *domain.Order, tickets []domain.Ticket) error {
	numbers := make([]string, len(tickets))
	for i, t := range tickets {
		numbers[i] = t.Number
	}

	n.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.Number),
		zap.String("email", order.Attendee.Email),
		zap.Strings("tickets", numbers),
	)

	return nil
}
