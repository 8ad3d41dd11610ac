package inventory

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/export"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// CreateItem validates in, checks its references and stores a new item.
func (s *Service) CreateItem(ctx context.Context, a Actor, in ItemInput) (*model.Item, error) {
	rec, err := s.itemRecord(in)
	if err != nil {
		return nil, err
	}
	tenant := s.Tenant(a)

	var item *model.Item
	err = db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		if err := checkItemReferences(ctx, tx, tenant, rec); err != nil {
			return err
		}
		item, err = store.CreateItem(ctx, tx, tenant, rec)
		if err != nil {
			return err
		}
		return s.resolveItem(ctx, tx, tenant, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created", "by", a.Username, "id", item.ID, "name", item.Name)
	return item, nil
}

// ListItems returns the tenant's items with their category, unit and
// images resolved.
func (s *Service) ListItems(ctx context.Context, a Actor) ([]model.Item, error) {
	tenant := s.Tenant(a)

	var (
		items      []model.Item
		categories []model.Category
		units      []model.Unit
		images     []model.ItemImage
	)
	err := db.RunInReadTx(ctx, s.db, func(tx db.Querier) error {
		var err error
		if items, err = store.ListItems(ctx, tx, tenant); err != nil {
			return err
		}
		if categories, err = store.ListCategories(ctx, tx, tenant); err != nil {
			return err
		}
		if units, err = store.ListUnits(ctx, tx, tenant); err != nil {
			return err
		}
		images, err = store.ListTenantImages(ctx, tx, tenant)
		return err
	})
	if err != nil {
		return nil, err
	}

	categoryByID := make(map[uuid.UUID]*model.Category, len(categories))
	for i := range categories {
		categoryByID[categories[i].ID] = &categories[i]
	}
	unitByID := make(map[uuid.UUID]*model.Unit, len(units))
	for i := range units {
		unitByID[units[i].ID] = &units[i]
	}
	imagesByItem := make(map[uuid.UUID][]model.ItemImage)
	for _, img := range images {
		imagesByItem[img.ItemID] = append(imagesByItem[img.ItemID], withURL(img))
	}

	for i := range items {
		it := &items[i]
		if it.CategoryID != nil {
			it.Category = categoryByID[*it.CategoryID]
		}
		if it.UnitID != nil {
			it.Unit = unitByID[*it.UnitID]
		}
		it.Images = imagesByItem[it.ID]
		if it.Images == nil {
			it.Images = []model.ItemImage{}
		}
	}
	return items, nil
}

// GetItem returns one item with its category, unit and images resolved.
func (s *Service) GetItem(ctx context.Context, a Actor, id uuid.UUID) (*model.Item, error) {
	tenant := s.Tenant(a)
	var item *model.Item
	err := db.RunInReadTx(ctx, s.db, func(tx db.Querier) error {
		var err error
		if item, err = store.GetItem(ctx, tx, tenant, id); err != nil {
			return err
		}
		return s.resolveItem(ctx, tx, tenant, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem replaces an item. Omitted optional fields are cleared and the
// quantity falls back to zero.
func (s *Service) UpdateItem(ctx context.Context, a Actor, id uuid.UUID, in ItemInput) (*model.Item, error) {
	rec, err := s.itemRecord(in)
	if err != nil {
		return nil, err
	}
	return s.saveItem(ctx, a, id, func(*model.Item) (store.ItemRecord, error) { return rec, nil })
}

// PatchItem changes only the fields present in p.
func (s *Service) PatchItem(ctx context.Context, a Actor, id uuid.UUID, p ItemPatch) (*model.Item, error) {
	return s.saveItem(ctx, a, id, func(cur *model.Item) (store.ItemRecord, error) {
		in := ItemInput{
			Name:        cur.Name,
			Description: cur.Description,
			Quantity:    RawQuantity(cur.Quantity.String()),
			CategoryID:  refString(cur.CategoryID),
			UnitID:      refString(cur.UnitID),
		}
		if p.Name.Set {
			in.Name = p.Name.Value
		}
		if p.Description.Set {
			in.Description = p.Description.Value
		}
		if p.Quantity.Set {
			in.Quantity = p.Quantity.Value
		}
		if p.CategoryID.Set {
			in.CategoryID = p.CategoryID.Value
		}
		if p.UnitID.Set {
			in.UnitID = p.UnitID.Value
		}
		return s.itemRecord(in)
	})
}

func (s *Service) saveItem(ctx context.Context, a Actor, id uuid.UUID, merge func(*model.Item) (store.ItemRecord, error)) (*model.Item, error) {
	tenant := s.Tenant(a)

	var item *model.Item
	err := db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		cur, err := store.GetItem(ctx, tx, tenant, id)
		if err != nil {
			return err
		}

		rec, err := merge(cur)
		if err != nil {
			return err
		}
		if err := checkItemReferences(ctx, tx, tenant, rec); err != nil {
			return err
		}
		if err := store.UpdateItem(ctx, tx, tenant, id, rec); err != nil {
			return err
		}

		item, err = store.GetItem(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		return s.resolveItem(ctx, tx, tenant, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item updated", "by", a.Username, "id", id)
	return item, nil
}

// DeleteItem removes an item with its images, then their blobs.
func (s *Service) DeleteItem(ctx context.Context, a Actor, id uuid.UUID) error {
	tenant := s.Tenant(a)

	var keys []string
	err := db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		images, err := store.ListImages(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		if err := store.DeleteItem(ctx, tx, tenant, id); err != nil {
			return err
		}
		for _, img := range images {
			keys = append(keys, img.BlobKey)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeBlobs(ctx, keys)
	s.logger.Info("item deleted", "by", a.Username, "id", id, "images", len(keys))
	return nil
}

// itemRecord validates an item command into a store record.
func (s *Service) itemRecord(in ItemInput) (store.ItemRecord, error) {
	in.normalize()
	if err := s.validateStruct(&in); err != nil {
		return store.ItemRecord{}, err
	}
	qty, err := parseQuantity(in.Quantity)
	if err != nil {
		return store.ItemRecord{}, err
	}
	return store.ItemRecord{
		Name:        in.Name,
		Description: in.Description,
		Quantity:    qty,
		CategoryID:  parseRef(in.CategoryID),
		UnitID:      parseRef(in.UnitID),
	}, nil
}

func checkItemReferences(ctx context.Context, q db.Querier, tenant uuid.UUID, rec store.ItemRecord) error {
	if err := checkReference(ctx, q, tenant, "category_id", rec.CategoryID, store.CategoryTenant); err != nil {
		return err
	}
	return checkReference(ctx, q, tenant, "unit_id", rec.UnitID, store.UnitTenant)
}

// resolveItem fills in the item's category, unit and images.
func (s *Service) resolveItem(ctx context.Context, q db.Querier, tenant uuid.UUID, item *model.Item) error {
	var err error
	if item.CategoryID != nil {
		if item.Category, err = store.GetCategory(ctx, q, tenant, *item.CategoryID); err != nil {
			return err
		}
	}
	if item.UnitID != nil {
		if item.Unit, err = store.GetUnit(ctx, q, tenant, *item.UnitID); err != nil {
			return err
		}
	}

	images, err := store.ListImages(ctx, q, tenant, item.ID)
	if err != nil {
		return err
	}
	item.Images = make([]model.ItemImage, 0, len(images))
	for _, img := range images {
		item.Images = append(item.Images, withURL(img))
	}
	return nil
}

// ExportItems writes the tenant's items as an XLSX workbook to w.
func (s *Service) ExportItems(ctx context.Context, a Actor, w io.Writer) error {
	items, err := s.ListItems(ctx, a)
	if err != nil {
		return err
	}
	if err := export.WriteItems(w, items); err != nil {
		return fmt.Errorf("exporting items: %w", err)
	}
	s.logger.Info("items exported", "by", a.Username, "count", len(items))
	return nil
}
