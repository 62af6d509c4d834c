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

const ticketTypeColumns = `id, event_id, name, unit_price, currency, total_quantity, available_quantity,
	max_quantity_per_order, sales_start, sales_end, has_sold, created_at, updated_at`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event *domain.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
	INSERT INTO events (id, title, description, venue, starts_at, ends_at, capacity, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query, event.ID, event.Title, event.Description, event.Venue,
		event.StartsAt, event.EndsAt, event.Capacity, event.Status, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", mapError(err, domain.ErrEventNotFound))
	}

	for i := range event.TicketTypes {
		if err := insertTicketType(ctx, tx, &event.TicketTypes[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	query := `
	SELECT id, title, description, venue, starts_at, ends_at, capacity, status, created_at, updated_at
	FROM events
	WHERE id = $1
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		return nil, mapError(err, domain.ErrEventNotFound)
	}

	types, err := r.ticketTypesFor(ctx, []uuid.UUID{eventID})
	if err != nil {
		return nil, err
	}
	event.TicketTypes = types[eventID]

	return event, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	query := `
	SELECT id, title, description, venue, starts_at, ends_at, capacity, status, created_at, updated_at
	FROM events
	WHERE $1::text = '' OR status = $1
	ORDER BY starts_at
	`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var events []domain.Event
	var ids []uuid.UUID
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
		ids = append(ids, event.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	types, err := r.ticketTypesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].TicketTypes = types[events[i].ID]
	}

	return events, nil
}

func (r *EventRepository) UpdateEventStatus(ctx context.Context, eventID uuid.UUID, from, to domain.EventStatus) error {
	query := `
	UPDATE events
	SET status = $1, updated_at = $2
	WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, time.Now(), eventID, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
			domain.ErrEventNotFound, domain.ErrStatusChanged)
	}

	return nil
}

func (r *EventRepository) AddTicketType(ctx context.Context, ticketType *domain.TicketType) error {
	return insertTicketType(ctx, r.db, ticketType)
}

func (r *EventRepository) GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*domain.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	tt, err := scanTicketType(r.db.QueryRowContext(ctx, query, ticketTypeID))
	if err != nil {
		return nil, mapError(err, domain.ErrTicketTypeNotFound)
	}

	return tt, nil
}

func (r *EventRepository) SetTicketTypeCapacity(ctx context.Context, ticketTypeID uuid.UUID, total int) error {
	query := `
	UPDATE ticket_types
	SET total_quantity = $1,
		available_quantity = $1,
		updated_at = $2
	WHERE id = $3 AND NOT has_sold
	`

	result, err := r.db.ExecContext(ctx, query, total, time.Now(), ticketTypeID)
	if err != nil {
		return mapError(err, domain.ErrTicketTypeNotFound)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.missingOr(ctx, `SELECT EXISTS (SELECT 1 FROM ticket_types WHERE id = $1)`, ticketTypeID,
			domain.ErrTicketTypeNotFound, domain.ErrTicketTypeSold)
	}

	return nil
}

// missingOr tells apart a conditional update that matched nothing because the
// row is absent from one that lost its condition.
func (r *EventRepository) missingOr(ctx context.Context, existsQuery string, id uuid.UUID, notFound, conflict error) error {
	return rowMissingOr(ctx, r.db, existsQuery, id, notFound, conflict)
}

func rowMissingOr(ctx context.Context, db *sql.DB, existsQuery string, id uuid.UUID, notFound, conflict error) error {
	var exists bool
	if err := db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFound
	}
	return conflict
}

func (r *EventRepository) ticketTypesFor(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]domain.TicketType, error) {
	types := make(map[uuid.UUID][]domain.TicketType, len(eventIDs))
	if len(eventIDs) == 0 {
		return types, nil
	}

	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = ANY($1) ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(eventIDs)))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		types[tt.EventID] = append(types[tt.EventID], *tt)
	}

	return types, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTicketType(ctx context.Context, db execer, tt *domain.TicketType) error {
	query := `
	INSERT INTO ticket_types (` + ticketTypeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := db.ExecContext(ctx, query, tt.ID, tt.EventID, tt.Name, tt.UnitPrice, tt.Currency,
		tt.TotalQuantity, tt.AvailableQuantity, tt.MaxQuantityPerOrder, tt.SalesStart, tt.SalesEnd,
		tt.HasSold, tt.CreatedAt, tt.UpdatedAt)
	if isForeignKeyViolation(err) {
		return domain.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert ticket type %s: %w", tt.ID, mapError(err, domain.ErrTicketTypeNotFound))
	}

	return nil
}

func scanEvent(row scanner) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Venue,
		&e.StartsAt,
		&e.EndsAt,
		&e.Capacity,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

func scanTicketType(row scanner) (*domain.TicketType, error) {
	var tt domain.TicketType
	var salesStart, salesEnd sql.NullTime

	err := row.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.UnitPrice,
		&tt.Currency,
		&tt.TotalQuantity,
		&tt.AvailableQuantity,
		&tt.MaxQuantityPerOrder,
		&salesStart,
		&salesEnd,
		&tt.HasSold,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tt.SalesStart = timePtr(salesStart)
	tt.SalesEnd = timePtr(salesEnd)

	return &tt, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
