package flightlogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles flight log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a flight log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const flightLogColumns = `id, organization_id, drone_id, pilot_id, order_id, location, took_off_at, landed_at, duration_seconds, COALESCE(notes,''), COALESCE(attachment_key,''), created_at, updated_at`

func scanFlightLog(row pgx.Row, fl *models.FlightLog) error {
	return row.Scan(&fl.ID, &fl.OrganizationID, &fl.DroneID, &fl.PilotID, &fl.OrderID, &fl.Location,
		&fl.TookOffAt, &fl.LandedAt, &fl.DurationSeconds, &fl.Notes, &fl.AttachmentKey, &fl.CreatedAt, &fl.UpdatedAt)
}

// List returns flight logs, newest first, with optional org, drone and pilot filters.
func (r *Repository) List(ctx context.Context, orgID, droneID, pilotID *uuid.UUID) ([]models.FlightLog, error) {
	q := `SELECT ` + flightLogColumns + ` FROM flight_logs`
	var conds []string
	var args []interface{}
	add := func(col string, v uuid.UUID) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if orgID != nil {
		add("organization_id", *orgID)
	}
	if droneID != nil {
		add("drone_id", *droneID)
	}
	if pilotID != nil {
		add("pilot_id", *pilotID)
	}
	for i, cond := range conds {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY took_off_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FlightLog
	for rows.Next() {
		var fl models.FlightLog
		if err := scanFlightLog(rows, &fl); err != nil {
			return nil, err
		}
		list = append(list, fl)
	}
	return list, rows.Err()
}

// GetByID returns a flight log by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.FlightLog, error) {
	const q = `SELECT ` + flightLogColumns + ` FROM flight_logs WHERE id = $1`
	var fl models.FlightLog
	err := scanFlightLog(r.pool.QueryRow(ctx, q, id), &fl)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fl, nil
}

// Create inserts a new flight log.
func (r *Repository) Create(ctx context.Context, fl *models.FlightLog) error {
	const q = `INSERT INTO flight_logs (id, organization_id, drone_id, pilot_id, order_id, location, took_off_at, landed_at, duration_seconds, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, fl.OrganizationID, fl.DroneID, fl.PilotID, fl.OrderID, fl.Location,
		fl.TookOffAt, fl.LandedAt, fl.DurationSeconds, fl.Notes).
		Scan(&fl.ID, &fl.CreatedAt, &fl.UpdatedAt)
}

// Update rewrites mutable flight log fields.
func (r *Repository) Update(ctx context.Context, fl *models.FlightLog) error {
	const q = `UPDATE flight_logs SET location = $1, took_off_at = $2, landed_at = $3,
		duration_seconds = $4, notes = NULLIF($5,''), order_id = $6, updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, fl.Location, fl.TookOffAt, fl.LandedAt, fl.DurationSeconds, fl.Notes, fl.OrderID, fl.ID)
	return err
}

// UpdateAttachmentKey records the S3 object key of the raw log file.
func (r *Repository) UpdateAttachmentKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE flight_logs SET attachment_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, id)
	return err
}

// Delete removes a flight log by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM flight_logs WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
