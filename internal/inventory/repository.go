package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerosky-ops/backend/internal/models"
)

// Repository handles inventory persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an inventory repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, organization_id, sku, name, quantity, min_quantity, unit_price_cents, created_at, updated_at`

func scanItem(row pgx.Row, i *models.InventoryItem) error {
	return row.Scan(&i.ID, &i.OrganizationID, &i.SKU, &i.Name, &i.Quantity, &i.MinQuantity,
		&i.UnitPriceCents, &i.CreatedAt, &i.UpdatedAt)
}

// List returns inventory items, restricted to one organization when orgID is set.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]models.InventoryItem, error) {
	base := `SELECT ` + itemColumns + ` FROM inventory_items`
	var rows pgx.Rows
	var err error
	if orgID != nil {
		rows, err = r.pool.Query(ctx, base+` WHERE organization_id = $1 ORDER BY sku`, *orgID)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY sku`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.InventoryItem
	for rows.Next() {
		var i models.InventoryItem
		if err := scanItem(rows, &i); err != nil {
			return nil, err
		}
		list = append(list, i)
	}
	return list, rows.Err()
}

// GetByID returns an inventory item by id alone, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	const q = `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`
	var i models.InventoryItem
	err := scanItem(r.pool.QueryRow(ctx, q, id), &i)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a new inventory item.
func (r *Repository) Create(ctx context.Context, i *models.InventoryItem) error {
	const q = `INSERT INTO inventory_items (id, organization_id, sku, name, quantity, min_quantity, unit_price_cents)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, i.OrganizationID, i.SKU, i.Name, i.Quantity, i.MinQuantity, i.UnitPriceCents).
		Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

// Update rewrites mutable item fields. Quantity changes go through
// CreateTransaction, never through Update.
func (r *Repository) Update(ctx context.Context, i *models.InventoryItem) error {
	const q = `UPDATE inventory_items SET organization_id = $1, name = $2, min_quantity = $3,
		unit_price_cents = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, i.OrganizationID, i.Name, i.MinQuantity, i.UnitPriceCents, i.ID)
	return err
}

// Delete removes an inventory item and, via cascade, its transactions.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM inventory_items WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// CreateTransaction inserts a stock movement and adjusts the item quantity
// atomically. The quantity CHECK constraint rejects movements that would
// drive stock negative, rolling back the whole transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.InventoryTransaction) (*models.InventoryItem, error) {
	var updated models.InventoryItem
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `INSERT INTO inventory_transactions (id, organization_id, item_id, type, quantity, note, created_by)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, NULLIF($5,''), $6)
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert, t.OrganizationID, t.ItemID, t.Type, t.Quantity, t.Note, t.CreatedBy).
			Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
		delta := t.Quantity
		if t.Type == models.InventoryTxOut {
			delta = -delta
		}
		const adjust = `UPDATE inventory_items SET quantity = quantity + $1, updated_at = NOW()
			WHERE id = $2 RETURNING ` + itemColumns
		return scanItem(tx.QueryRow(ctx, adjust, delta, t.ItemID), &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListTransactions returns an item's stock movements, newest first.
func (r *Repository) ListTransactions(ctx context.Context, itemID uuid.UUID) ([]models.InventoryTransaction, error) {
	const q = `SELECT id, organization_id, item_id, type, quantity, COALESCE(note,''), created_by, created_at
		FROM inventory_transactions WHERE item_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.InventoryTransaction
	for rows.Next() {
		var t models.InventoryTransaction
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.ItemID, &t.Type, &t.Quantity, &t.Note, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
