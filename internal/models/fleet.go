package models

import (
	"time"

	"github.com/google/uuid"
)

// Drone status values.
const (
	DroneStatusActive      = "active"
	DroneStatusMaintenance = "maintenance"
	DroneStatusRetired     = "retired"
)

// Drone represents a registered aircraft in an organization's fleet.
type Drone struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	SerialNumber   string     `json:"serial_number"`
	Model          string     `json:"model"`
	Manufacturer   string     `json:"manufacturer,omitempty"`
	Registration   string     `json:"registration,omitempty"` // aviation-authority registration mark
	Status         string     `json:"status"`
	FlightHours    float64    `json:"flight_hours"`
	PurchasedAt    *time.Time `json:"purchased_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Battery represents a flight battery, optionally assigned to a drone.
type Battery struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	SerialNumber   string     `json:"serial_number"`
	Model          string     `json:"model"`
	CapacityMah    int        `json:"capacity_mah"`
	CycleCount     int        `json:"cycle_count"`
	HealthPercent  int        `json:"health_percent"`
	DroneID        *uuid.UUID `json:"drone_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
