package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// CreateUnit creates a new unit of measure in the tenant's catalog.
func CreateUnit(ctx context.Context, q db.Querier, tenant uuid.UUID, name, symbol string) (*model.Unit, error) {
	u := &model.Unit{
		ID:       uuid.New(),
		TenantID: tenant,
		Name:     name,
		Symbol:   symbol,
	}

	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO units (id, tenant_id, name, symbol) VALUES (?, ?, ?, ?)`),
		u.ID, u.TenantID, u.Name, u.Symbol,
	)
	if err != nil {
		if desc, ok := db.UniqueViolation(err); ok {
			return nil, unitConflict(desc)
		}
		return nil, fmt.Errorf("creating unit: %w", err)
	}

	return u, nil
}

// GetUnit returns a tenant's unit by ID.
func GetUnit(ctx context.Context, q db.Querier, tenant, id uuid.UUID) (*model.Unit, error) {
	var u model.Unit
	err := sqlx.GetContext(ctx, q, &u, q.Rebind(
		`SELECT id, tenant_id, name, symbol
		 FROM units WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting unit: %w", err)
	}
	return &u, nil
}

// ListUnits returns the tenant's units ordered by name.
func ListUnits(ctx context.Context, q db.Querier, tenant uuid.UUID) ([]model.Unit, error) {
	var units []model.Unit
	err := sqlx.SelectContext(ctx, q, &units, q.Rebind(
		`SELECT id, tenant_id, name, symbol
		 FROM units WHERE tenant_id = ? ORDER BY name`), tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	return units, nil
}

// UpdateUnit changes a unit's name and symbol.
func UpdateUnit(ctx context.Context, q db.Querier, tenant, id uuid.UUID, name, symbol string) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE units SET name = ?, symbol = ? WHERE id = ? AND tenant_id = ?`),
		name, symbol, id, tenant,
	)
	if err != nil {
		if desc, ok := db.UniqueViolation(err); ok {
			return unitConflict(desc)
		}
		return fmt.Errorf("updating unit: %w", err)
	}
	return requireAffected(result, "updating unit")
}

// DeleteUnit removes a unit. Items referencing it get their unit cleared.
func DeleteUnit(ctx context.Context, q db.Querier, tenant, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM units WHERE id = ? AND tenant_id = ?`), id, tenant,
	)
	if err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	return requireAffected(result, "deleting unit")
}

// UnitTenant returns the tenant owning a unit, whoever asks.
func UnitTenant(ctx context.Context, q db.Querier, id uuid.UUID) (uuid.UUID, error) {
	return ownerOf(ctx, q, "units", id)
}

// unitConflict names the field behind a units unique violation. SQLite
// reports the columns, PostgreSQL the constraint name; both mention "symbol".
func unitConflict(desc string) error {
	if strings.Contains(desc, "symbol") {
		return model.NewFieldError("symbol", model.ErrDuplicateName)
	}
	return model.NewFieldError("name", model.ErrDuplicateName)
}
