package drones

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles drone persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a drone repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const droneColumns = `id, organization_id, serial_number, model, COALESCE(manufacturer,''), COALESCE(registration,''), status, flight_hours, purchased_at, created_at, updated_at`

func scanDrone(row pgx.Row, d *models.Drone) error {
	return row.Scan(&d.ID, &d.OrganizationID, &d.SerialNumber, &d.Model, &d.Manufacturer,
		&d.Registration, &d.Status, &d.FlightHours, &d.PurchasedAt, &d.CreatedAt, &d.UpdatedAt)
}

// List returns drones, restricted to one organization when orgID is set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.Drone, error) {
	base := `SELECT ` + droneColumns + ` FROM drones`
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
	var list []models.Drone
	for rows.Next() {
		var d models.Drone
		if err := scanDrone(rows, &d); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// GetByID returns a drone by id alone, or nil when absent. Tenant checks
// happen in the handler against the returned row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Drone, error) {
	const q = `SELECT ` + droneColumns + ` FROM drones WHERE id = $1`
	var d models.Drone
	err := scanDrone(r.pool.QueryRow(ctx, q, id), &d)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new drone.
func (r *Repository) Create(ctx context.Context, d *models.Drone) error {
	const q = `INSERT INTO drones (id, organization_id, serial_number, model, manufacturer, registration, status, purchased_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7)
		RETURNING id, flight_hours, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.OrganizationID, d.SerialNumber, d.Model, d.Manufacturer, d.Registration, d.Status, d.PurchasedAt).
		Scan(&d.ID, &d.FlightHours, &d.CreatedAt, &d.UpdatedAt)
}

// Update rewrites mutable drone fields.
func (r *Repository) Update(ctx context.Context, d *models.Drone) error {
	const q = `UPDATE drones SET organization_id = $1, model = $2, manufacturer = NULLIF($3,''),
		registration = NULLIF($4,''), status = $5, flight_hours = $6, updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, d.OrganizationID, d.Model, d.Manufacturer, d.Registration, d.Status, d.FlightHours, d.ID)
	return err
}

// Delete removes a drone by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM drones WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
