package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

const orderColumns = `id, number, user_id, buyer_email, attendee_name, attendee_email, attendee_phone,
	total_amount, currency, status, payment_session_id, checkout_url, session_expires_at, payment_ref,
	inventory_released, cancel_reason, created_at, updated_at, paid_at, cancelled_at, refunded_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	queryHeader := `
	INSERT INTO orders (id, number, user_id, buyer_email, attendee_name, attendee_email, attendee_phone,
		total_amount, currency, status, payment_session_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.ExecContext(ctx, queryHeader, order.ID, order.Number, order.UserID, order.BuyerEmail,
		order.Attendee.Name, order.Attendee.Email, order.Attendee.Phone, order.TotalAmount, order.Currency,
		order.Status, nullString(order.PaymentSessionID), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order header: %w", mapError(err, domain.ErrOrderNotFound))
	}

	queryItem := `
	INSERT INTO order_items (id, order_id, event_id, ticket_type_id, ticket_type_name, quantity, unit_price, currency, position)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	stmt, err := tx.PrepareContext(ctx, queryItem)
	if err != nil {
		return fmt.Errorf("failed to prepare item statement: %w", err)
	}

	defer stmt.Close()

	for i, item := range order.Items {
		_, err := stmt.ExecContext(ctx, item.ID, order.ID, item.EventID, item.TicketTypeID, item.TicketTypeName,
			item.Quantity, item.UnitPrice, item.Currency, i)
		if err != nil {
			return fmt.Errorf("failed to insert order item for ticket type %s: %w", item.TicketTypeID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *OrderRepository) GetOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_session_id = $1`, sessionID)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapError(err, domain.ErrOrderNotFound)
	}

	orders := []domain.Order{*order}
	if err := r.loadChildren(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, userID)
}

func (r *OrderRepository) ListStalePending(ctx context.Context, createdBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	query := `
	SELECT ` + orderColumns + `
	FROM orders
	WHERE status = 'PENDING' AND created_at < $1 AND id > $2
	ORDER BY id
	LIMIT $3
	`

	return r.list(ctx, query, createdBefore, after, limit)
}

func (r *OrderRepository) ListLapsedCheckouts(ctx context.Context, expiredBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	query := `
	SELECT ` + orderColumns + `
	FROM orders
	WHERE status = 'PROCESSING' AND session_expires_at < $1 AND id > $2
	ORDER BY id
	LIMIT $3
	`

	return r.list(ctx, query, expiredBefore, after, limit)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// TransitionOrder writes only the columns the target status owns, guarded by
// the expected source statuses.
func (r *OrderRepository) TransitionOrder(ctx context.Context, orderID uuid.UUID, t domain.OrderTransition) (*domain.Order, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	set := `status = $1, updated_at = $2, inventory_released = inventory_released OR $3`
	args := []any{t.To, t.At, t.ReleaseInventory, orderID, pq.Array(from)}

	switch t.To {
	case domain.OrderProcessing:
		set += `, payment_session_id = $6, checkout_url = $7, session_expires_at = $8`
		args = append(args, nullString(t.SessionID), t.CheckoutURL, t.SessionExpiresAt)
	case domain.OrderPaid:
		set += `, paid_at = $2, payment_ref = $6`
		args = append(args, t.PaymentRef)
	case domain.OrderCancelled:
		set += `, cancelled_at = $2, cancel_reason = $6`
		args = append(args, t.Reason)
	case domain.OrderRefunded:
		set += `, refunded_at = $2, cancel_reason = $6`
		args = append(args, t.Reason)
	default:
		return nil, fmt.Errorf("%w: unknown target status %s", domain.ErrInvariantViolation, t.To)
	}

	query := `UPDATE orders SET ` + set + ` WHERE id = $4 AND status = ANY($5) RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, rowMissingOr(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID,
			domain.ErrOrderNotFound, domain.ErrStatusChanged)
	}
	if err != nil {
		return nil, mapError(err, domain.ErrOrderNotFound)
	}

	return r.GetOrder(ctx, orderID)
}

// AttachTickets confirms the tickets are recorded against the order. Ticket
// ids are read back from the tickets table, so nothing else is stored.
func (r *OrderRepository) AttachTickets(ctx context.Context, orderID uuid.UUID, ticketIDs []uuid.UUID) error {
	query := `SELECT COUNT(*) FROM tickets WHERE order_id = $1 AND id = ANY($2)`

	var n int
	if err := r.db.QueryRowContext(ctx, query, orderID, pq.Array(uuidStrings(ticketIDs))).Scan(&n); err != nil {
		return err
	}
	if n != len(ticketIDs) {
		return fmt.Errorf("%w: order %s owns %d of %d tickets", domain.ErrInvariantViolation, orderID, n, len(ticketIDs))
	}

	return nil
}

func (r *OrderRepository) loadChildren(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[uuid.UUID]int, len(orders))
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		ids[i] = orders[i].ID
	}
	arg := pq.Array(uuidStrings(ids))

	rows, err := r.db.QueryContext(ctx, `
	SELECT id, order_id, event_id, ticket_type_id, ticket_type_name, quantity, unit_price, currency
	FROM order_items
	WHERE order_id = ANY($1)
	ORDER BY order_id, position
	`, arg)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.EventID,
			&item.TicketTypeID,
			&item.TicketTypeName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Currency,
		); err != nil {
			return err
		}
		o := &orders[index[item.OrderID]]
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ticketRows, err := r.db.QueryContext(ctx, `
	SELECT order_id, id FROM tickets WHERE order_id = ANY($1) ORDER BY issued_at, line_item_id, unit_index
	`, arg)
	if err != nil {
		return err
	}

	defer ticketRows.Close()

	for ticketRows.Next() {
		var orderID, ticketID uuid.UUID
		if err := ticketRows.Scan(&orderID, &ticketID); err != nil {
			return err
		}
		o := &orders[index[orderID]]
		o.TicketIDs = append(o.TicketIDs, ticketID)
	}

	return ticketRows.Err()
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var sessionID sql.NullString
	var sessionExpiresAt, paidAt, cancelledAt, refundedAt sql.NullTime

	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.BuyerEmail,
		&o.Attendee.Name,
		&o.Attendee.Email,
		&o.Attendee.Phone,
		&o.TotalAmount,
		&o.Currency,
		&o.Status,
		&sessionID,
		&o.CheckoutURL,
		&sessionExpiresAt,
		&o.PaymentRef,
		&o.InventoryReleased,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&paidAt,
		&cancelledAt,
		&refundedAt,
	)
	if err != nil {
		return nil, err
	}

	o.PaymentSessionID = sessionID.String
	o.SessionExpiresAt = timePtr(sessionExpiresAt)
	o.PaidAt = timePtr(paidAt)
	o.CancelledAt = timePtr(cancelledAt)
	o.RefundedAt = timePtr(refundedAt)

	return &o, nil
}
