package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

// InventoryLedger keeps available_quantity in a single row per ticket type
// and changes it with one conditional UPDATE, so concurrent reservations are
// serialized by the row lock and can never take the counter below zero.
type InventoryLedger struct {
	db *sql.DB
}

func NewInventoryLedger(db *sql.DB) *InventoryLedger {
	return &InventoryLedger{db: db}
}

func (l *InventoryLedger) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	query := `
	UPDATE ticket_types
	SET available_quantity = available_quantity - $1,
		has_sold = TRUE,
		updated_at = NOW()
	WHERE id = $2 AND available_quantity >= $1
	`

	result, err := l.db.ExecContext(ctx, query, quantity, ticketTypeID)
	if err != nil {
		return mapError(err, domain.ErrTicketTypeNotFound)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return rowMissingOr(ctx, l.db, `SELECT EXISTS (SELECT 1 FROM ticket_types WHERE id = $1)`, ticketTypeID,
			domain.ErrTicketTypeNotFound, domain.ErrInsufficientInventory)
	}

	return nil
}

func (l *InventoryLedger) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	query := `
	UPDATE ticket_types
	SET available_quantity = LEAST(available_quantity + $1, total_quantity),
		updated_at = NOW()
	WHERE id = $2
	`

	result, err := l.db.ExecContext(ctx, query, quantity, ticketTypeID)
	if err != nil {
		return mapError(err, domain.ErrTicketTypeNotFound)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrTicketTypeNotFound
	}

	return nil
}
