package reimbursements

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles reimbursement persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reimbursement repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reimbursementColumns = `id, organization_id, member_id, description, amount_cents, currency, status, COALESCE(receipt_key,''), created_at, updated_at`

func scanReimbursement(row pgx.Row, rb *models.Reimbursement) error {
	return row.Scan(&rb.ID, &rb.OrganizationID, &rb.MemberID, &rb.Description, &rb.AmountCents,
		&rb.Currency, &rb.Status, &rb.ReceiptKey, &rb.CreatedAt, &rb.UpdatedAt)
}

// List returns reimbursements, newest first, optionally restricted to one
// organization and/or one member.
func (r *Repository) List(ctx context.Context, orgID, memberID *uuid.UUID) ([]models.Reimbursement, error) {
	q := `SELECT ` + reimbursementColumns + ` FROM reimbursements`
	var args []interface{}
	if orgID != nil {
		args = append(args, *orgID)
		q += ` WHERE organization_id = $1`
	}
	if memberID != nil {
		args = append(args, *memberID)
		if len(args) == 1 {
			q += ` WHERE member_id = $1`
		} else {
			q += ` AND member_id = $2`
		}
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Reimbursement
	for rows.Next() {
		var rb models.Reimbursement
		if err := scanReimbursement(rows, &rb); err != nil {
			return nil, err
		}
		list = append(list, rb)
	}
	return list, rows.Err()
}

// GetByID returns a reimbursement by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reimbursement, error) {
	const q = `SELECT ` + reimbursementColumns + ` FROM reimbursements WHERE id = $1`
	var rb models.Reimbursement
	err := scanReimbursement(r.pool.QueryRow(ctx, q, id), &rb)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

// Create inserts a new reimbursement claim.
func (r *Repository) Create(ctx context.Context, rb *models.Reimbursement) error {
	const q = `INSERT INTO reimbursements (id, organization_id, member_id, description, amount_cents, currency, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rb.OrganizationID, rb.MemberID, rb.Description, rb.AmountCents, rb.Currency, rb.Status).
		Scan(&rb.ID, &rb.CreatedAt, &rb.UpdatedAt)
}

// Update rewrites mutable reimbursement fields.
func (r *Repository) Update(ctx context.Context, rb *models.Reimbursement) error {
	const q = `UPDATE reimbursements SET description = $1, amount_cents = $2, status = $3, updated_at = NOW() WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, rb.Description, rb.AmountCents, rb.Status, rb.ID)
	return err
}

// UpdateReceiptKey records the S3 object key of the receipt.
func (r *Repository) UpdateReceiptKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE reimbursements SET receipt_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, id)
	return err
}

// Delete removes a reimbursement by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM reimbursements WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
