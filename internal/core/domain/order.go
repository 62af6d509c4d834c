package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderPaid       OrderStatus = "PAID"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderPaid, OrderCancelled},
	OrderProcessing: {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderRefunded},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsInventory is true while the order's units are reserved but not yet settled.
func (s OrderStatus) HoldsInventory() bool {
	return s == OrderPending || s == OrderProcessing
}

// Buyer is the authenticated caller placing or managing an order.
type Buyer struct {
	UserID uuid.UUID
	Email  string
}

// Attendee is snapshotted into the order at creation and into each ticket at issuance.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type LineItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	EventID        uuid.UUID
	TicketTypeID   uuid.UUID
	TicketTypeName string
	Quantity       int
	UnitPrice      decimal.Decimal
	Currency       string
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID          uuid.UUID
	Number      string
	UserID      uuid.UUID
	BuyerEmail  string
	Attendee    Attendee
	Items       []LineItem
	TotalAmount decimal.Decimal
	Currency    string
	Status      OrderStatus

	PaymentSessionID string
	CheckoutURL      string
	SessionExpiresAt *time.Time
	PaymentRef       string

	TicketIDs         []uuid.UUID
	InventoryReleased bool
	CancelReason      string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
	RefundedAt  *time.Time
}

func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total
}

// UnitCount is the number of tickets the order yields once paid.
func (o *Order) UnitCount() int {
	var n int
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// OrderTransition is a conditional status change: it applies only when the
// stored status is one of From.
type OrderTransition struct {
	From []OrderStatus
	To   OrderStatus
	At   time.Time

	SessionID        string
	CheckoutURL      string
	SessionExpiresAt *time.Time
	PaymentRef       string
	Reason           string

	// ReleaseInventory marks the order's reservation as returned to the ledger.
	ReleaseInventory bool
}

// Validate rejects a transition whose source states cannot legally reach To.
func (t OrderTransition) Validate() error {
	if len(t.From) == 0 {
		return fmt.Errorf("%w: order transition to %s has no source status", ErrInvariantViolation, t.To)
	}
	for _, from := range t.From {
		if !from.CanTransitionTo(t.To) {
			return fmt.Errorf("%w: order cannot move from %s to %s", ErrInvariantViolation, from, t.To)
		}
	}
	return nil
}

func (t OrderTransition) Allows(current OrderStatus) bool {
	for _, s := range t.From {
		if s == current {
			return true
		}
	}
	return false
}

// Apply mutates o as the transition dictates. The caller has already checked Allows.
func (o *Order) Apply(t OrderTransition) {
	at := t.At
	o.Status = t.To
	o.UpdatedAt = at

	switch t.To {
	case OrderProcessing:
		o.PaymentSessionID = t.SessionID
		o.CheckoutURL = t.CheckoutURL
		o.SessionExpiresAt = t.SessionExpiresAt
	case OrderPaid:
		o.PaidAt = &at
		o.PaymentRef = t.PaymentRef
	case OrderCancelled:
		o.CancelledAt = &at
		o.CancelReason = t.Reason
	case OrderRefunded:
		o.RefundedAt = &at
		o.CancelReason = t.Reason
	}

	if t.ReleaseInventory {
		o.InventoryReleased = true
	}
}
