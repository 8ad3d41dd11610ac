package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// CreateCategory creates a new category in the tenant's catalog.
func CreateCategory(ctx context.Context, q db.Querier, tenant uuid.UUID, name, description string) (*model.Category, error) {
	c := &model.Category{
		ID:          uuid.New(),
		TenantID:    tenant,
		Name:        name,
		Description: description,
	}

	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO categories (id, tenant_id, name, description) VALUES (?, ?, ?, ?)`),
		c.ID, c.TenantID, c.Name, c.Description,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return nil, model.NewFieldError("name", model.ErrDuplicateName)
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	return c, nil
}

// GetCategory returns a tenant's category by ID.
func GetCategory(ctx context.Context, q db.Querier, tenant, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := sqlx.GetContext(ctx, q, &c, q.Rebind(
		`SELECT id, tenant_id, name, description
		 FROM categories WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return &c, nil
}

// ListCategories returns the tenant's categories ordered by name.
func ListCategories(ctx context.Context, q db.Querier, tenant uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	err := sqlx.SelectContext(ctx, q, &categories, q.Rebind(
		`SELECT id, tenant_id, name, description
		 FROM categories WHERE tenant_id = ? ORDER BY name`), tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames or re-describes a category.
func UpdateCategory(ctx context.Context, q db.Querier, tenant, id uuid.UUID, name, description string) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE categories SET name = ?, description = ? WHERE id = ? AND tenant_id = ?`),
		name, description, id, tenant,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return model.NewFieldError("name", model.ErrDuplicateName)
		}
		return fmt.Errorf("updating category: %w", err)
	}
	return requireAffected(result, "updating category")
}

// DeleteCategory removes a category. Items referencing it keep existing with
// their category cleared (ON DELETE SET NULL).
func DeleteCategory(ctx context.Context, q db.Querier, tenant, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM categories WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return requireAffected(result, "deleting category")
}

// CategoryTenant returns the tenant owning a category, whoever asks.
func CategoryTenant(ctx context.Context, q db.Querier, id uuid.UUID) (uuid.UUID, error) {
	return ownerOf(ctx, q, "categories", id)
}

// ownerOf looks up the tenant_id of a row in a tenant-scoped table.
func ownerOf(ctx context.Context, q db.Querier, table string, id uuid.UUID) (uuid.UUID, error) {
	var tenant uuid.UUID
	err := sqlx.GetContext(ctx, q, &tenant, q.Rebind(
		`SELECT tenant_id FROM `+table+` WHERE id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, model.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up %s owner: %w", table, err)
	}
	return tenant, nil
}

// requireAffected turns a zero-row update or delete into ErrNotFound.
func requireAffected(result sql.Result, action string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
