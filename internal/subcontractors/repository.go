package subcontractors

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles subcontractor persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subcontractor repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subcontractorColumns = `id, organization_id, company_name, COALESCE(contact_name,''), COALESCE(contact_email,''), COALESCE(contact_phone,''), COALESCE(license_number,''), created_at, updated_at`

func scanSubcontractor(row pgx.Row, s *models.Subcontractor) error {
	return row.Scan(&s.ID, &s.OrganizationID, &s.CompanyName, &s.ContactName, &s.ContactEmail,
		&s.ContactPhone, &s.LicenseNumber, &s.CreatedAt, &s.UpdatedAt)
}

// List returns subcontractors, restricted to one organization when orgID is set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.Subcontractor, error) {
	base := `SELECT ` + subcontractorColumns + ` FROM subcontractors`
	var rows pgx.Rows
	var err error
	if orgID != nil {
		rows, err = r.pool.Query(ctx, base+` WHERE organization_id = $1 ORDER BY company_name`, *orgID)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY company_name`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Subcontractor
	for rows.Next() {
		var s models.Subcontractor
		if err := scanSubcontractor(rows, &s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetByID returns a subcontractor by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subcontractor, error) {
	const q = `SELECT ` + subcontractorColumns + ` FROM subcontractors WHERE id = $1`
	var s models.Subcontractor
	err := scanSubcontractor(r.pool.QueryRow(ctx, q, id), &s)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new subcontractor.
func (r *Repository) Create(ctx context.Context, s *models.Subcontractor) error {
	const q = `INSERT INTO subcontractors (id, organization_id, company_name, contact_name, contact_email, contact_phone, license_number)
		VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.OrganizationID, s.CompanyName, s.ContactName, s.ContactEmail, s.ContactPhone, s.LicenseNumber).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update rewrites mutable subcontractor fields.
func (r *Repository) Update(ctx context.Context, s *models.Subcontractor) error {
	const q = `UPDATE subcontractors SET organization_id = $1, company_name = $2, contact_name = NULLIF($3,''),
		contact_email = NULLIF($4,''), contact_phone = NULLIF($5,''), license_number = NULLIF($6,''), updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, s.OrganizationID, s.CompanyName, s.ContactName, s.ContactEmail, s.ContactPhone, s.LicenseNumber, s.ID)
	return err
}

// Delete removes a subcontractor by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM subcontractors WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
