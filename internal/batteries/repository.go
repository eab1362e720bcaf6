package batteries

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles battery persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a battery repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const batteryColumns = `id, organization_id, serial_number, model, capacity_mah, cycle_count, health_percent, drone_id, created_at, updated_at`

func scanBattery(row pgx.Row, b *models.Battery) error {
	return row.Scan(&b.ID, &b.OrganizationID, &b.SerialNumber, &b.Model, &b.CapacityMah,
		&b.CycleCount, &b.HealthPercent, &b.DroneID, &b.CreatedAt, &b.UpdatedAt)
}

// List returns batteries, restricted to one organization when orgID is set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.Battery, error) {
	base := `SELECT ` + batteryColumns + ` FROM batteries`
	var rows pgx.Rows
	var err error
	if orgID != nil {
		rows, err = r.pool.Query(ctx, base+` WHERE organization_id = $1 ORDER BY serial_number`, *orgID)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY serial_number`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Battery
	for rows.Next() {
		var b models.Battery
		if err := scanBattery(rows, &b); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// GetByID returns a battery by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Battery, error) {
	const q = `SELECT ` + batteryColumns + ` FROM batteries WHERE id = $1`
	var b models.Battery
	err := scanBattery(r.pool.QueryRow(ctx, q, id), &b)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new battery.
func (r *Repository) Create(ctx context.Context, b *models.Battery) error {
	const q = `INSERT INTO batteries (id, organization_id, serial_number, model, capacity_mah, health_percent, drone_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, cycle_count, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, b.OrganizationID, b.SerialNumber, b.Model, b.CapacityMah, b.HealthPercent, b.DroneID).
		Scan(&b.ID, &b.CycleCount, &b.CreatedAt, &b.UpdatedAt)
}

// Update rewrites mutable battery fields.
func (r *Repository) Update(ctx context.Context, b *models.Battery) error {
	const q = `UPDATE batteries SET organization_id = $1, model = $2, capacity_mah = $3,
		cycle_count = $4, health_percent = $5, drone_id = $6, updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, b.OrganizationID, b.Model, b.CapacityMah, b.CycleCount, b.HealthPercent, b.DroneID, b.ID)
	return err
}

// Delete removes a battery by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM batteries WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
