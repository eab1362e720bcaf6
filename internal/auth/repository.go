package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles identity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an identity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const identityColumns = `id, login, COALESCE(email,''), password_hash, full_name, role, organization_id, active, created_at, updated_at`

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.ID, &i.Login, &i.Email, &i.Password, &i.FullName, &i.Role,
		&i.OrganizationID, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// GetByID returns an identity by id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns an identity by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.pool.QueryRow(ctx, q, email))
}

// GetByLogin returns an identity by login identifier, or nil when absent.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE login = $1`
	return scanIdentity(r.pool.QueryRow(ctx, q, login))
}

// List returns identities, restricted to one organization when orgID is set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.Identity, error) {
	base := `SELECT ` + identityColumns + ` FROM identities`
	var rows pgx.Rows
	var err error
	if orgID != nil {
		rows, err = r.pool.Query(ctx, base+` WHERE organization_id = $1 ORDER BY full_name, login`, *orgID)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY full_name, login`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Identity
	for rows.Next() {
		var i models.Identity
		if err := rows.Scan(&i.ID, &i.Login, &i.Email, &i.Password, &i.FullName, &i.Role,
			&i.OrganizationID, &i.Active, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, i)
	}
	return list, rows.Err()
}

// Create inserts a new identity.
func (r *Repository) Create(ctx context.Context, i *models.Identity) error {
	const q = `INSERT INTO identities (id, login, email, password_hash, full_name, role, organization_id, active)
		VALUES (gen_random_uuid(), $1, NULLIF($2,''), $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, i.Login, i.Email, i.Password, i.FullName, string(i.Role), i.OrganizationID, i.Active).
		Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

// Update rewrites mutable identity fields.
func (r *Repository) Update(ctx context.Context, i *models.Identity) error {
	const q = `UPDATE identities SET email = NULLIF($1,''), full_name = $2, role = $3,
		organization_id = $4, active = $5, updated_at = NOW() WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, i.Email, i.FullName, string(i.Role), i.OrganizationID, i.Active, i.ID)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	const q = `UPDATE identities SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, hash, id)
	return err
}

// Delete hard-deletes an identity. Owned rows (flight logs, reimbursements,
// ticket messages) cascade via foreign keys.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM identities WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
