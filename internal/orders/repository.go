package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles order persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an order repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, organization_id, reference, customer_name, COALESCE(description,''), status, subcontractor_id, scheduled_at, price_cents, currency, created_at, updated_at`

func scanOrder(row pgx.Row, o *models.Order) error {
	return row.Scan(&o.ID, &o.OrganizationID, &o.Reference, &o.CustomerName, &o.Description,
		&o.Status, &o.SubcontractorID, &o.ScheduledAt, &o.PriceCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
}

// List returns orders, restricted by organization and/or status when set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID, status string) ([]models.Order, error) {
	base := `SELECT ` + orderColumns + ` FROM orders`
	var cond string
	var args []interface{}
	if orgID != nil {
		cond = ` WHERE organization_id = $1`
		args = append(args, *orgID)
	}
	if status != "" {
		if cond == "" {
			cond = ` WHERE status = $1`
		} else {
			cond += ` AND status = $2`
		}
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, base+cond+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// GetByID returns an order by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	var o models.Order
	err := scanOrder(r.pool.QueryRow(ctx, q, id), &o)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO orders (id, organization_id, reference, customer_name, description, status, subcontractor_id, scheduled_at, price_cents, currency)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4,''), $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, o.OrganizationID, o.Reference, o.CustomerName, o.Description, o.Status,
		o.SubcontractorID, o.ScheduledAt, o.PriceCents, o.Currency).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// Update rewrites mutable order fields.
func (r *Repository) Update(ctx context.Context, o *models.Order) error {
	const q = `UPDATE orders SET organization_id = $1, customer_name = $2, description = NULLIF($3,''),
		status = $4, subcontractor_id = $5, scheduled_at = $6, price_cents = $7, updated_at = NOW() WHERE id = $8`
	_, err := r.pool.Exec(ctx, q, o.OrganizationID, o.CustomerName, o.Description, o.Status,
		o.SubcontractorID, o.ScheduledAt, o.PriceCents, o.ID)
	return err
}

// Delete removes an order by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM orders WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
