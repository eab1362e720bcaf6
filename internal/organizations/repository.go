package organizations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organization repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TenantTables lists every table holding organization-owned rows, children
// before parents. DeleteCascade derives its statements from this list, so a
// new tenant-owned table only needs an entry here (ticket_messages hangs off
// tickets and is scoped through its parent).
var TenantTables = []string{
	"inventory_transactions",
	"flight_logs",
	"tickets",
	"reimbursements",
	"orders",
	"batteries",
	"inventory_items",
	"subcontractors",
	"drones",
	"identities",
}

const organizationColumns = `id, name, slug, COALESCE(country,''), created_at, updated_at`

func scanOrganization(row pgx.Row, o *models.Organization) error {
	return row.Scan(&o.ID, &o.Name, &o.Slug, &o.Country, &o.CreatedAt, &o.UpdatedAt)
}

// List returns every organization, ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Organization, error) {
	const q = `SELECT ` + organizationColumns + ` FROM organizations ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := scanOrganization(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// GetByID returns an organization by id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	var o models.Organization
	err := scanOrganization(r.pool.QueryRow(ctx, q, id), &o)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a new organization.
func (r *Repository) Create(ctx context.Context, o *models.Organization) error {
	const q = `INSERT INTO organizations (id, name, slug, country)
		VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, o.Name, o.Slug, o.Country).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// Update rewrites mutable organization fields. The slug never changes.
func (r *Repository) Update(ctx context.Context, o *models.Organization) error {
	const q = `UPDATE organizations SET name = $1, country = NULLIF($2,''), updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, o.Name, o.Country, o.ID)
	return err
}

// DeleteCascade removes an organization and every row it owns in one
// transaction. The tenant-owned tables are cleared children first; a
// forgotten child table fails the whole transaction on its foreign key
// instead of leaving orphans. Ticket messages go with their parent tickets.
func (r *Repository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const deleteMessages = `DELETE FROM ticket_messages WHERE ticket_id IN
			(SELECT id FROM tickets WHERE organization_id = $1)`
		if _, err := tx.Exec(ctx, deleteMessages, id); err != nil {
			return err
		}
		for _, table := range TenantTables {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE organization_id = $1`, id); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
		return err
	})
}
