package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// ItemRecord holds the writable fields of an item. Category and unit
// ownership must already have been checked by the caller; the store only
// relies on foreign keys for their existence.
type ItemRecord struct {
	Name        string
	Description string
	Quantity    model.Quantity
	CategoryID  *uuid.UUID
	UnitID      *uuid.UUID
}

const itemColumns = `id, tenant_id, category_id, unit_id, name, description, quantity, created_at`

// CreateItem creates a new item for tenant.
func CreateItem(ctx context.Context, q db.Querier, tenant uuid.UUID, rec ItemRecord) (*model.Item, error) {
	if err := rec.Quantity.Validate(); err != nil {
		return nil, model.NewFieldError("quantity", err)
	}

	item := &model.Item{
		ID:          uuid.New(),
		TenantID:    tenant,
		CategoryID:  rec.CategoryID,
		UnitID:      rec.UnitID,
		Name:        rec.Name,
		Description: rec.Description,
		Quantity:    rec.Quantity,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		item.ID, item.TenantID, item.CategoryID, item.UnitID,
		item.Name, item.Description, item.Quantity, item.CreatedAt,
	)
	if err != nil {
		return nil, itemWriteError(err, "creating item")
	}

	return item, nil
}

// GetItem returns a tenant's item by ID.
func GetItem(ctx context.Context, q db.Querier, tenant, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := sqlx.GetContext(ctx, q, &item, q.Rebind(
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

// ListItems returns the tenant's items ordered by name.
func ListItems(ctx context.Context, q db.Querier, tenant uuid.UUID) ([]model.Item, error) {
	var items []model.Item
	err := sqlx.SelectContext(ctx, q, &items, q.Rebind(
		`SELECT `+itemColumns+` FROM items WHERE tenant_id = ? ORDER BY name, id`), tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// UpdateItem replaces an item's writable fields. created_at never changes.
func UpdateItem(ctx context.Context, q db.Querier, tenant, id uuid.UUID, rec ItemRecord) error {
	if err := rec.Quantity.Validate(); err != nil {
		return model.NewFieldError("quantity", err)
	}

	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE items
		 SET category_id = ?, unit_id = ?, name = ?, description = ?, quantity = ?
		 WHERE id = ? AND tenant_id = ?`),
		rec.CategoryID, rec.UnitID, rec.Name, rec.Description, rec.Quantity, id, tenant,
	)
	if err != nil {
		return itemWriteError(err, "updating item")
	}
	return requireAffected(result, "updating item")
}

// DeleteItem removes an item; its images go with it (ON DELETE CASCADE).
func DeleteItem(ctx context.Context, q db.Querier, tenant, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM items WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return requireAffected(result, "deleting item")
}

// itemWriteError translates constraint failures on the items table.
func itemWriteError(err error, action string) error {
	if _, ok := db.UniqueViolation(err); ok {
		return model.NewFieldError("name", model.ErrDuplicateItem)
	}
	if db.ForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", action, model.ErrDanglingReference)
	}
	return fmt.Errorf("%s: %w", action, err)
}
