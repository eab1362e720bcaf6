package tickets

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles ticket persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ticket repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, organization_id, subject, status, priority, created_by, created_at, updated_at`

func scanTicket(row pgx.Row, t *models.Ticket) error {
	return row.Scan(&t.ID, &t.OrganizationID, &t.Subject, &t.Status, &t.Priority, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
}

// List returns tickets, newest first, with optional org and status filters.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID, status string) ([]models.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []interface{}
	if orgID != nil {
		args = append(args, *orgID)
		q += ` WHERE organization_id = $1`
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 1 {
			q += ` WHERE status = $1`
		} else {
			q += ` AND status = $2`
		}
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// GetByID returns a ticket by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	var t models.Ticket
	err := scanTicket(r.pool.QueryRow(ctx, q, id), &t)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateWithMessage inserts a ticket and its first message atomically.
// Neither row exists if either insert fails.
func (r *Repository) CreateWithMessage(ctx context.Context, t *models.Ticket, firstMessage *models.TicketMessage) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertTicket = `INSERT INTO tickets (id, organization_id, subject, status, priority, created_by)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertTicket, t.OrganizationID, t.Subject, t.Status, t.Priority, t.CreatedBy).
			Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return err
		}
		firstMessage.TicketID = t.ID
		const insertMessage = `INSERT INTO ticket_messages (id, ticket_id, author_id, body)
			VALUES (gen_random_uuid(), $1, $2, $3)
			RETURNING id, created_at`
		return tx.QueryRow(ctx, insertMessage, firstMessage.TicketID, firstMessage.AuthorID, firstMessage.Body).
			Scan(&firstMessage.ID, &firstMessage.CreatedAt)
	})
}

// Update rewrites mutable ticket fields.
func (r *Repository) Update(ctx context.Context, t *models.Ticket) error {
	const q = `UPDATE tickets SET subject = $1, status = $2, priority = $3, updated_at = NOW() WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, t.Subject, t.Status, t.Priority, t.ID)
	return err
}

// Delete removes a ticket and, via cascade, its messages.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM tickets WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ListMessages returns a ticket's messages, oldest first.
func (r *Repository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	const q = `SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_messages WHERE ticket_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TicketMessage
	for rows.Next() {
		var m models.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CreateMessage inserts a follow-up message on an existing ticket.
func (r *Repository) CreateMessage(ctx context.Context, m *models.TicketMessage) error {
	const q = `INSERT INTO ticket_messages (id, ticket_id, author_id, body)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.TicketID, m.AuthorID, m.Body).Scan(&m.ID, &m.CreatedAt)
}
