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

const imageColumns = `i.id, i.item_id, i.blob_key, i.content_type, i.size, i.width, i.height, i.is_primary, i.uploaded_at`

// CreateImage attaches an image row to an item. A primary image demotes its
// siblings in the same transaction.
func CreateImage(ctx context.Context, q db.Querier, img *model.ItemImage) error {
	return db.RunInTx(ctx, q, func(tx db.Querier) error {
		if img.IsPrimary {
			if err := clearPrimary(ctx, tx, img.ItemID); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO item_images (id, item_id, blob_key, content_type, size, width, height, is_primary, uploaded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			img.ID, img.ItemID, img.BlobKey, img.ContentType, img.Size,
			img.Width, img.Height, img.IsPrimary, img.UploadedAt,
		)
		if err != nil {
			return imageWriteError(err, "creating image")
		}
		return nil
	})
}

// imageWriteError maps constraint failures on item_images. A second primary
// image can only slip past clearPrimary through a concurrent write.
func imageWriteError(err error, action string) error {
	if db.ForeignKeyViolation(err) {
		return model.NewFieldError("item_id", model.ErrNotFound)
	}
	if _, ok := db.UniqueViolation(err); ok {
		return model.NewFieldError("is_primary", fmt.Errorf("%w: item already has a primary image", model.ErrInvalidInput))
	}
	return fmt.Errorf("%s: %w", action, err)
}

// GetImage returns an image if its item belongs to tenant.
func GetImage(ctx context.Context, q db.Querier, tenant, id uuid.UUID) (*model.ItemImage, error) {
	var img model.ItemImage
	err := sqlx.GetContext(ctx, q, &img, q.Rebind(
		`SELECT `+imageColumns+`
		 FROM item_images i JOIN items it ON it.id = i.item_id
		 WHERE i.id = ? AND it.tenant_id = ?`), id, tenant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return &img, nil
}

// ListImages returns an item's images, oldest first.
func ListImages(ctx context.Context, q db.Querier, tenant, itemID uuid.UUID) ([]model.ItemImage, error) {
	var images []model.ItemImage
	err := sqlx.SelectContext(ctx, q, &images, q.Rebind(
		`SELECT `+imageColumns+`
		 FROM item_images i JOIN items it ON it.id = i.item_id
		 WHERE i.item_id = ? AND it.tenant_id = ?
		 ORDER BY i.uploaded_at, i.id`), itemID, tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	return images, nil
}

// ListTenantImages returns every image of the tenant's items, grouped by item
// and oldest first within an item.
func ListTenantImages(ctx context.Context, q db.Querier, tenant uuid.UUID) ([]model.ItemImage, error) {
	var images []model.ItemImage
	err := sqlx.SelectContext(ctx, q, &images, q.Rebind(
		`SELECT `+imageColumns+`
		 FROM item_images i JOIN items it ON it.id = i.item_id
		 WHERE it.tenant_id = ?
		 ORDER BY i.item_id, i.uploaded_at, i.id`), tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tenant images: %w", err)
	}
	return images, nil
}

// SetImagePrimary marks or unmarks an image as its item's primary image.
// Marking clears the flag on every sibling first, atomically.
func SetImagePrimary(ctx context.Context, q db.Querier, tenant, id uuid.UUID, primary bool) (*model.ItemImage, error) {
	var img *model.ItemImage
	err := db.RunInTx(ctx, q, func(tx db.Querier) error {
		var err error
		img, err = GetImage(ctx, tx, tenant, id)
		if err != nil {
			return err
		}

		if primary {
			if err := clearPrimary(ctx, tx, img.ItemID); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE item_images SET is_primary = ? WHERE id = ?`), primary, id,
		)
		if err != nil {
			return imageWriteError(err, "updating image")
		}
		img.IsPrimary = primary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DeleteImage removes a single image row.
func DeleteImage(ctx context.Context, q db.Querier, tenant, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind(
		`DELETE FROM item_images
		 WHERE id = ? AND item_id IN (SELECT id FROM items WHERE tenant_id = ?)`), id, tenant,
	)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return requireAffected(result, "deleting image")
}

func clearPrimary(ctx context.Context, q db.Querier, itemID uuid.UUID) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE item_images SET is_primary = ? WHERE item_id = ? AND is_primary = ?`),
		false, itemID, true,
	)
	if err != nil {
		return fmt.Errorf("clearing primary image: %w", err)
	}
	return nil
}
