package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

func TestCategoryNamesArePerTenant(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()

	if _, err := CreateCategory(ctx, database, tenantA, "Cotton", ""); err != nil {
		t.Fatalf("CreateCategory A: %v", err)
	}
	if _, err := CreateCategory(ctx, database, tenantB, "Cotton", ""); err != nil {
		t.Fatalf("CreateCategory B: %v", err)
	}

	_, err := CreateCategory(ctx, database, tenantA, "Cotton", "again")
	if !errors.Is(err, model.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if model.ErrorField(err) != "name" {
		t.Errorf("expected field 'name', got %q", model.ErrorField(err))
	}
}

func TestGetCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	c, _ := CreateCategory(ctx, database, tenant, "Fabric", "Woven goods")

	got, err := GetCategory(ctx, database, tenant, c.ID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if got.Name != "Fabric" || got.Description != "Woven goods" {
		t.Errorf("unexpected category: %+v", got)
	}

	if _, err := GetCategory(ctx, database, uuid.New(), c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestListCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	CreateCategory(ctx, database, tenant, "Trims", "")
	CreateCategory(ctx, database, tenant, "Buttons", "")
	CreateCategory(ctx, database, uuid.New(), "Hidden", "")

	categories, err := ListCategories(ctx, database, tenant)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0].Name != "Buttons" {
		t.Errorf("expected 'Buttons' first, got %q", categories[0].Name)
	}
}

func TestUpdateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	c, _ := CreateCategory(ctx, database, tenant, "Fabric", "")
	CreateCategory(ctx, database, tenant, "Yarn", "")

	if err := UpdateCategory(ctx, database, tenant, c.ID, "Fabrics", "All fabrics"); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	got, _ := GetCategory(ctx, database, tenant, c.ID)
	if got.Name != "Fabrics" || got.Description != "All fabrics" {
		t.Errorf("unexpected category after update: %+v", got)
	}

	err := UpdateCategory(ctx, database, tenant, c.ID, "Yarn", "")
	if !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName renaming onto sibling, got %v", err)
	}

	err = UpdateCategory(ctx, database, uuid.New(), c.ID, "Mine", "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestDeleteCategoryClearsItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	c, _ := CreateCategory(ctx, database, tenant, "Fabric", "")
	item, _ := CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk", CategoryID: &c.ID})

	if err := DeleteCategory(ctx, database, tenant, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := GetItem(ctx, database, tenant, item.ID)
	if err != nil {
		t.Fatalf("GetItem after category delete: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("expected category cleared, got %v", got.CategoryID)
	}
}

func TestDeleteCategoryWithCollidingUncategorizedItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	c, _ := CreateCategory(ctx, database, tenant, "Fabric", "")
	CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk"})
	CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk", CategoryID: &c.ID})

	// Both items end up uncategorized; NULL categories never collide.
	if err := DeleteCategory(ctx, database, tenant, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	items, _ := ListItems(ctx, database, tenant)
	if len(items) != 2 {
		t.Errorf("expected both items to survive, got %d", len(items))
	}
}

func TestCategoryTenant(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	c, _ := CreateCategory(ctx, database, tenant, "Fabric", "")

	owner, err := CategoryTenant(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("CategoryTenant: %v", err)
	}
	if owner != tenant {
		t.Errorf("expected owner %s, got %s", tenant, owner)
	}

	if _, err := CategoryTenant(ctx, database, uuid.New()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing category, got %v", err)
	}
}
