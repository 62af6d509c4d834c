package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"go.uber.org/zap"
)

const orderPaidEvent = "OrderPaid"

type TicketMessage struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	Code       string `json:"code"`
	TicketType string `json:"ticket_type"`
}

// OrderPaidMessage is what the mailer consumes to send the buyer their tickets.
type OrderPaidMessage struct {
	Event       string          `json:"event"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	BuyerEmail  string          `json:"buyer_email"`
	Attendee    domain.Attendee `json:"attendee"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Tickets     []TicketMessage `json:"tickets"`
}

type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("error creating producer: %w", err)
	}

	return NewKafkaNotifierWithProducer(p, topic, logger), nil
}

func NewKafkaNotifierWithProducer(p sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: p, topic: topic, logger: logger}
}

// OrderPaid publishes one message per order, keyed by order id so redeliveries
// land on the same partition.
func (n *KafkaNotifier) OrderPaid(ctx context.Context, order *domain.Order, tickets []domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(newOrderPaidMessage(order, tickets))
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(order.ID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{{
			Key:   []byte("event_type"),
			Value: []byte(orderPaidEvent),
		}},
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	n.logger.Info("Order paid notification published",
		zap.String("order_id", order.ID.String()),
		zap.String("topic", n.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

func newOrderPaidMessage(order *domain.Order, tickets []domain.Ticket) OrderPaidMessage {
	msg := OrderPaidMessage{
		Event:       orderPaidEvent,
		OrderID:     order.ID.String(),
		OrderNumber: order.Number,
		BuyerEmail:  order.BuyerEmail,
		Attendee:    order.Attendee,
		Total:       order.TotalAmount,
		Currency:    order.Currency,
		PaidAt:      order.PaidAt,
		Tickets:     make([]TicketMessage, 0, len(tickets)),
	}
	for _, t := range tickets {
		msg.Tickets = append(msg.Tickets, TicketMessage{
			ID:         t.ID.String(),
			Number:     t.Number,
			Code:       t.Code,
			TicketType: t.TicketTypeName,
		})
	}
	return msg
}
