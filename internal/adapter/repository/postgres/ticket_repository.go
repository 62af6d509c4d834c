package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

const ticketColumns = `id, number, code, order_id, line_item_id, unit_index, event_id, ticket_type_id,
	ticket_type_name, owner_id, attendee_name, attendee_email, attendee_phone, unit_price, currency,
	status, issued_at, used_at, used_by, updated_at`

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer tx.Rollback()

	query := `
	INSERT INTO tickets (` + ticketColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	ON CONFLICT (line_item_id, unit_index) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare ticket statement: %w", err)
	}

	defer stmt.Close()

	var inserted int64
	for _, t := range tickets {
		result, err := stmt.ExecContext(ctx, t.ID, t.Number, t.Code, t.OrderID, t.LineItemID, t.UnitIndex,
			t.EventID, t.TicketTypeID, t.TicketTypeName, t.OwnerID, t.Attendee.Name, t.Attendee.Email,
			t.Attendee.Phone, t.UnitPrice, t.Currency, t.Status, t.IssuedAt, t.UsedAt, t.UsedBy, t.UpdatedAt)
		if err != nil {
			return 0, mapError(err, domain.ErrTicketNotFound)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return int(inserted), nil
}

func (r *TicketRepository) ListTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE order_id = $1 ORDER BY issued_at, line_item_id, unit_index`, orderID)
}

func (r *TicketRepository) ListTicketsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE owner_id = $1 ORDER BY issued_at DESC, unit_index`, ownerID)
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID))
	if err != nil {
		return nil, mapError(err, domain.ErrTicketNotFound)
	}
	return t, nil
}

func (r *TicketRepository) FindTicket(ctx context.Context, lookup string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number = $1 OR code = $1 LIMIT 1`

	t, err := scanTicket(r.db.QueryRowContext(ctx, query, lookup))
	if err != nil {
		return nil, mapError(err, domain.ErrTicketNotFound)
	}
	return t, nil
}

func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID uuid.UUID, usedAt time.Time, usedBy string) (*domain.Ticket, error) {
	query := `
	UPDATE tickets
	SET status = $1, used_at = $2, used_by = $3, updated_at = $2
	WHERE id = $4 AND status = $5
	RETURNING ` + ticketColumns

	t, err := scanTicket(r.db.QueryRowContext(ctx, query, domain.TicketUsed, usedAt, usedBy, ticketID, domain.TicketValid))
	if err == sql.ErrNoRows {
		return nil, rowMissingOr(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticketID,
			domain.ErrTicketNotFound, domain.ErrStatusChanged)
	}
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (r *TicketRepository) SetOrderTicketsStatus(ctx context.Context, orderID uuid.UUID, status domain.TicketStatus) (int, error) {
	query := `
	UPDATE tickets
	SET status = $1, updated_at = $2
	WHERE order_id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), orderID, domain.TicketValid)
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

func (r *TicketRepository) list(ctx context.Context, query string, arg any) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}

	return tickets, rows.Err()
}

func scanTicket(row scanner) (*domain.Ticket, error) {
	var t domain.Ticket
	var usedAt sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.Number,
		&t.Code,
		&t.OrderID,
		&t.LineItemID,
		&t.UnitIndex,
		&t.EventID,
		&t.TicketTypeID,
		&t.TicketTypeName,
		&t.OwnerID,
		&t.Attendee.Name,
		&t.Attendee.Email,
		&t.Attendee.Phone,
		&t.UnitPrice,
		&t.Currency,
		&t.Status,
		&t.IssuedAt,
		&usedAt,
		&t.UsedBy,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.UsedAt = timePtr(usedAt)

	return &t, nil
}
