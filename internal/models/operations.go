package models

import (
	"time"

	"github.com/google/uuid"
)

// Subcontractor is an external operator an organization works with.
type Subcontractor struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	CompanyName    string    `json:"company_name"`
	ContactName    string    `json:"contact_name,omitempty"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	ContactPhone   string    `json:"contact_phone,omitempty"`
	LicenseNumber  string    `json:"license_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Order status values.
const (
	OrderStatusDraft      = "draft"
	OrderStatusScheduled  = "scheduled"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Order is a customer job (survey, inspection, mapping flight, ...).
type Order struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	Reference       string     `json:"reference"`
	CustomerName    string     `json:"customer_name"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	SubcontractorID *uuid.UUID `json:"subcontractor_id,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	PriceCents      int        `json:"price_cents"`
	Currency        string     `json:"currency"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FlightLog records one flight of a drone, filed by a pilot.
type FlightLog struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	DroneID         uuid.UUID  `json:"drone_id"`
	PilotID         uuid.UUID  `json:"pilot_id"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	Location        string     `json:"location"`
	TookOffAt       time.Time  `json:"took_off_at"`
	LandedAt        time.Time  `json:"landed_at"`
	DurationSeconds int        `json:"duration_seconds"`
	Notes           string     `json:"notes,omitempty"`
	AttachmentKey   string     `json:"-"` // S3 object key for the raw log file
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
