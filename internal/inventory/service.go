// Package inventory holds the tenant-scoped operations on categories,
// units, items and item images. Every write validates a typed command,
// resolves the caller's tenant and runs in one database transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// Actor is the authenticated account performing an operation.
type Actor struct {
	UserID   uuid.UUID
	Username string
}

// Service applies validation, tenant scoping and reference checks on top of
// the stores. Every write runs in one transaction.
type Service struct {
	db       *sqlx.DB
	blobs    blob.Store
	tenancy  string
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService wires the service. tenancy is model.TenancyMulti or
// model.TenancySingle; a nil logger means slog.Default().
func NewService(database *sqlx.DB, blobs blob.Store, tenancy string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tenancy == "" {
		tenancy = model.TenancyMulti
	}
	return &Service{
		db:       database,
		blobs:    blobs,
		tenancy:  tenancy,
		validate: newValidator(),
		logger:   logger,
	}
}

// Tenant returns the tenant an actor works in.
func (s *Service) Tenant(a Actor) uuid.UUID {
	if s.tenancy == model.TenancySingle {
		return model.ImplicitTenant
	}
	return a.UserID
}

// ownerLookup returns the tenant owning a referenced record.
type ownerLookup func(ctx context.Context, q db.Querier, id uuid.UUID) (uuid.UUID, error)

// checkReference makes sure a referenced category or unit exists and
// belongs to tenant. It must run inside the write's transaction.
func checkReference(ctx context.Context, q db.Querier, tenant uuid.UUID, field string, id *uuid.UUID, lookup ownerLookup) error {
	if id == nil {
		return nil
	}

	owner, err := lookup(ctx, q, *id)
	if errors.Is(err, model.ErrNotFound) {
		return model.NewFieldError(field, model.ErrDanglingReference)
	}
	if err != nil {
		return err
	}
	if owner != tenant {
		return model.NewFieldError(field, model.ErrForbiddenReference)
	}
	return nil
}

// removeBlobs deletes image bytes after their rows are gone. Failures only
// leave orphaned objects behind, so they are logged.
func (s *Service) removeBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete image blob", "key", key, "error", err)
		}
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.NewFieldError(field, fmt.Errorf("%w: %s must be a UUID", model.ErrInvalidInput, field))
	}
	return id, nil
}
