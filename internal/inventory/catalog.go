package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// CreateCategory adds a category to the actor's catalog.
func (s *Service) CreateCategory(ctx context.Context, a Actor, in CategoryInput) (*model.Category, error) {
	in.normalize()
	if err := s.validateStruct(&in); err != nil {
		return nil, err
	}

	c, err := store.CreateCategory(ctx, s.db, s.Tenant(a), in.Name, in.Description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("category created", "by", a.Username, "id", c.ID, "name", c.Name)
	return c, nil
}

// ListCategories returns the actor's categories sorted by name.
func (s *Service) ListCategories(ctx context.Context, a Actor) ([]model.Category, error) {
	return store.ListCategories(ctx, s.db, s.Tenant(a))
}

// GetCategory returns one category. Other tenants' ids yield model.ErrNotFound.
func (s *Service) GetCategory(ctx context.Context, a Actor, id uuid.UUID) (*model.Category, error) {
	return store.GetCategory(ctx, s.db, s.Tenant(a), id)
}

// UpdateCategory replaces every field of a category.
func (s *Service) UpdateCategory(ctx context.Context, a Actor, id uuid.UUID, in CategoryInput) (*model.Category, error) {
	in.normalize()
	if err := s.validateStruct(&in); err != nil {
		return nil, err
	}
	return s.saveCategory(ctx, a, id, func(*model.Category) CategoryInput { return in })
}

// PatchCategory changes only the fields present in p.
func (s *Service) PatchCategory(ctx context.Context, a Actor, id uuid.UUID, p CategoryPatch) (*model.Category, error) {
	return s.saveCategory(ctx, a, id, func(cur *model.Category) CategoryInput {
		in := CategoryInput{Name: cur.Name, Description: cur.Description}
		if p.Name.Set {
			in.Name = p.Name.Value
		}
		if p.Description.Set {
			in.Description = p.Description.Value
		}
		return in
	})
}

func (s *Service) saveCategory(ctx context.Context, a Actor, id uuid.UUID, merge func(*model.Category) CategoryInput) (*model.Category, error) {
	tenant := s.Tenant(a)

	var saved *model.Category
	err := db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		cur, err := store.GetCategory(ctx, tx, tenant, id)
		if err != nil {
			return err
		}

		in := merge(cur)
		in.normalize()
		if err := s.validateStruct(&in); err != nil {
			return err
		}

		if err := store.UpdateCategory(ctx, tx, tenant, id, in.Name, in.Description); err != nil {
			return err
		}
		cur.Name, cur.Description = in.Name, in.Description
		saved = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category updated", "by", a.Username, "id", id)
	return saved, nil
}

// DeleteCategory removes a category; its items stay, uncategorised.
func (s *Service) DeleteCategory(ctx context.Context, a Actor, id uuid.UUID) error {
	if err := store.DeleteCategory(ctx, s.db, s.Tenant(a), id); err != nil {
		return err
	}
	s.logger.Info("category deleted", "by", a.Username, "id", id)
	return nil
}

// CreateUnit adds a unit of measure. Name and symbol are unique per tenant.
func (s *Service) CreateUnit(ctx context.Context, a Actor, in UnitInput) (*model.Unit, error) {
	in.normalize()
	if err := s.validateStruct(&in); err != nil {
		return nil, err
	}

	u, err := store.CreateUnit(ctx, s.db, s.Tenant(a), in.Name, in.Symbol)
	if err != nil {
		return nil, err
	}

	s.logger.Info("unit created", "by", a.Username, "id", u.ID, "symbol", u.Symbol)
	return u, nil
}

// ListUnits returns the actor's units sorted by name.
func (s *Service) ListUnits(ctx context.Context, a Actor) ([]model.Unit, error) {
	return store.ListUnits(ctx, s.db, s.Tenant(a))
}

// GetUnit returns one unit of measure.
func (s *Service) GetUnit(ctx context.Context, a Actor, id uuid.UUID) (*model.Unit, error) {
	return store.GetUnit(ctx, s.db, s.Tenant(a), id)
}

// UpdateUnit replaces a unit's name and symbol.
func (s *Service) UpdateUnit(ctx context.Context, a Actor, id uuid.UUID, in UnitInput) (*model.Unit, error) {
	in.normalize()
	if err := s.validateStruct(&in); err != nil {
		return nil, err
	}
	return s.saveUnit(ctx, a, id, func(*model.Unit) UnitInput { return in })
}

// PatchUnit changes only the unit fields present in p.
func (s *Service) PatchUnit(ctx context.Context, a Actor, id uuid.UUID, p UnitPatch) (*model.Unit, error) {
	return s.saveUnit(ctx, a, id, func(cur *model.Unit) UnitInput {
		in := UnitInput{Name: cur.Name, Symbol: cur.Symbol}
		if p.Name.Set {
			in.Name = p.Name.Value
		}
		if p.Symbol.Set {
			in.Symbol = p.Symbol.Value
		}
		return in
	})
}

func (s *Service) saveUnit(ctx context.Context, a Actor, id uuid.UUID, merge func(*model.Unit) UnitInput) (*model.Unit, error) {
	tenant := s.Tenant(a)

	var saved *model.Unit
	err := db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		cur, err := store.GetUnit(ctx, tx, tenant, id)
		if err != nil {
			return err
		}

		in := merge(cur)
		in.normalize()
		if err := s.validateStruct(&in); err != nil {
			return err
		}

		if err := store.UpdateUnit(ctx, tx, tenant, id, in.Name, in.Symbol); err != nil {
			return err
		}
		cur.Name, cur.Symbol = in.Name, in.Symbol
		saved = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("unit updated", "by", a.Username, "id", id)
	return saved, nil
}

// DeleteUnit removes a unit; items measured in it lose their unit.
func (s *Service) DeleteUnit(ctx context.Context, a Actor, id uuid.UUID) error {
	if err := store.DeleteUnit(ctx, s.db, s.Tenant(a), id); err != nil {
		return err
	}
	s.logger.Info("unit deleted", "by", a.Username, "id", id)
	return nil
}
