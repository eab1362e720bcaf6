package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a stocked part or consumable (propellers, payloads, ...).
type InventoryItem struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	MinQuantity    int       `json:"min_quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Inventory transaction types.
const (
	InventoryTxIn  = "in"
	InventoryTxOut = "out"
)

// InventoryTransaction is one stock movement. Creating one adjusts the
// item's quantity in the same database transaction.
type InventoryTransaction struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	ItemID         uuid.UUID `json:"item_id"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	Note           string    `json:"note,omitempty"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
