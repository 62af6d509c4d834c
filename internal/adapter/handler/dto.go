package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
)

type TicketTypeResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Currency            string          `json:"currency"`
	TotalQuantity       int             `json:"total_quantity"`
	AvailableQuantity   int             `json:"available_quantity"`
	MaxQuantityPerOrder int             `json:"max_quantity_per_order,omitempty"`
	SalesStart          *time.Time      `json:"sales_start,omitempty"`
	SalesEnd            *time.Time      `json:"sales_end,omitempty"`
}

type EventResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Venue       string               `json:"venue"`
	StartsAt    time.Time            `json:"starts_at"`
	EndsAt      time.Time            `json:"ends_at"`
	Capacity    int                  `json:"capacity"`
	Status      string               `json:"status"`
	TicketTypes []TicketTypeResponse `json:"ticket_types"`
}

type LineItemResponse struct {
	TicketTypeID   string          `json:"ticket_type_id"`
	TicketTypeName string          `json:"ticket_type_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID           string             `json:"id"`
	Number       string             `json:"number"`
	Status       string             `json:"status"`
	Items        []LineItemResponse `json:"items"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	Currency     string             `json:"currency"`
	Attendee     domain.Attendee    `json:"attendee"`
	CheckoutURL  string             `json:"checkout_url,omitempty"`
	TicketIDs    []string           `json:"ticket_ids,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time         `json:"refunded_at,omitempty"`
}

type TicketResponse struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	Code       string          `json:"code"`
	OrderID    string          `json:"order_id"`
	EventID    string          `json:"event_id"`
	TicketType string          `json:"ticket_type"`
	Attendee   domain.Attendee `json:"attendee"`
	Status     string          `json:"status"`
	IssuedAt   time.Time       `json:"issued_at"`
	UsedAt     *time.Time      `json:"used_at,omitempty"`
}

type CheckoutResponse struct {
	SessionID   string    `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTicketTypeResponse(tt domain.TicketType) TicketTypeResponse {
	return TicketTypeResponse{
		ID:                  tt.ID.String(),
		Name:                tt.Name,
		UnitPrice:           tt.UnitPrice,
		Currency:            tt.Currency,
		TotalQuantity:       tt.TotalQuantity,
		AvailableQuantity:   tt.AvailableQuantity,
		MaxQuantityPerOrder: tt.MaxQuantityPerOrder,
		SalesStart:          tt.SalesStart,
		SalesEnd:            tt.SalesEnd,
	}
}

func newEventResponse(e *domain.Event) EventResponse {
	resp := EventResponse{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Capacity:    e.Capacity,
		Status:      string(e.Status),
		TicketTypes: make([]TicketTypeResponse, 0, len(e.TicketTypes)),
	}
	for _, tt := range e.TicketTypes {
		resp.TicketTypes = append(resp.TicketTypes, newTicketTypeResponse(tt))
	}
	return resp
}

func newOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:           o.ID.String(),
		Number:       o.Number,
		Status:       string(o.Status),
		Items:        make([]LineItemResponse, 0, len(o.Items)),
		TotalAmount:  o.TotalAmount,
		Currency:     o.Currency,
		Attendee:     o.Attendee,
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
		PaidAt:       o.PaidAt,
		CancelledAt:  o.CancelledAt,
		RefundedAt:   o.RefundedAt,
	}
	if o.Status == domain.OrderProcessing {
		resp.CheckoutURL = o.CheckoutURL
	}
	for _, li := range o.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			TicketTypeID:   li.TicketTypeID.String(),
			TicketTypeName: li.TicketTypeName,
			Quantity:       li.Quantity,
			UnitPrice:      li.UnitPrice,
			Subtotal:       li.Subtotal(),
		})
	}
	for _, id := range o.TicketIDs {
		resp.TicketIDs = append(resp.TicketIDs, id.String())
	}
	return resp
}

func newTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:         t.ID.String(),
		Number:     t.Number,
		Code:       t.Code,
		OrderID:    t.OrderID.String(),
		EventID:    t.EventID.String(),
		TicketType: t.TicketTypeName,
		Attendee:   t.Attendee,
		Status:     string(t.Status),
		IssuedAt:   t.IssuedAt,
		UsedAt:     t.UsedAt,
	}
}

func newCheckoutResponse(s *ports.PaymentSession) CheckoutResponse {
	return CheckoutResponse{SessionID: s.SessionID, RedirectURL: s.RedirectURL, ExpiresAt: s.ExpiresAt}
}
