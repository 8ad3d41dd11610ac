package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ImageContentPath is where an image's bytes are served.
const ImageContentPath = "/api/images/%s/content"

func withURL(img model.ItemImage) model.ItemImage {
	img.URL = fmt.Sprintf(ImageContentPath, img.ID)
	return img
}

// AttachImage processes an uploaded picture, stores its bytes and adds it to
// the item's gallery. If the row cannot be written the stored bytes are
// removed again.
func (s *Service) AttachImage(ctx context.Context, a Actor, up ImageUpload) (*model.ItemImage, error) {
	if err := s.validateStruct(&up); err != nil {
		return nil, err
	}
	itemID, err := parseID("item_id", up.ItemID)
	if err != nil {
		return nil, err
	}
	tenant := s.Tenant(a)

	if _, err := store.GetItem(ctx, s.db, tenant, itemID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewFieldError("item_id", model.ErrNotFound)
		}
		return nil, err
	}

	pic, err := imaging.Process(bytes.NewReader(up.Data))
	if err != nil {
		if errors.Is(err, model.ErrInvalidImage) {
			return nil, model.NewFieldError("image", err)
		}
		return nil, err
	}

	img := &model.ItemImage{
		ID:          uuid.New(),
		ItemID:      itemID,
		ContentType: imaging.ContentType,
		Size:        pic.Size(),
		Width:       pic.Width,
		Height:      pic.Height,
		IsPrimary:   up.IsPrimary,
		UploadedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	img.BlobKey = blob.ImageKey(tenant, itemID, img.ID)

	if err := s.blobs.Put(ctx, img.BlobKey, pic.Data, img.ContentType); err != nil {
		return nil, err
	}

	err = db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		// The item may have gone away while the bytes were uploading.
		if _, err := store.GetItem(ctx, tx, tenant, itemID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewFieldError("item_id", model.ErrNotFound)
			}
			return err
		}
		return store.CreateImage(ctx, tx, img)
	})
	if err != nil {
		s.removeBlobs(ctx, []string{img.BlobKey})
		return nil, err
	}

	s.logger.Info("image attached", "by", a.Username, "id", img.ID, "item", itemID, "size", img.Size, "primary", img.IsPrimary)
	out := withURL(*img)
	return &out, nil
}

// ListImages returns an item's gallery, oldest first.
func (s *Service) ListImages(ctx context.Context, a Actor, itemID uuid.UUID) ([]model.ItemImage, error) {
	tenant := s.Tenant(a)
	var images []model.ItemImage
	err := db.RunInReadTx(ctx, s.db, func(tx db.Querier) error {
		if _, err := store.GetItem(ctx, tx, tenant, itemID); err != nil {
			return err
		}
		var err error
		images, err = store.ListImages(ctx, tx, tenant, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.ItemImage, 0, len(images))
	for _, img := range images {
		out = append(out, withURL(img))
	}
	return out, nil
}

// GetImage returns an image's metadata if its item belongs to the actor's tenant.
func (s *Service) GetImage(ctx context.Context, a Actor, id uuid.UUID) (*model.ItemImage, error) {
	img, err := store.GetImage(ctx, s.db, s.Tenant(a), id)
	if err != nil {
		return nil, err
	}
	out := withURL(*img)
	return &out, nil
}

// OpenImage returns the image row and a reader over its bytes. The caller
// closes the reader.
func (s *Service) OpenImage(ctx context.Context, a Actor, id uuid.UUID) (*model.ItemImage, io.ReadCloser, error) {
	img, err := store.GetImage(ctx, s.db, s.Tenant(a), id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, img.BlobKey)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Error("image blob missing", "id", id, "key", img.BlobKey)
		}
		return nil, nil, err
	}
	return img, rc, nil
}

// UpdateImage sets or clears the image's primary flag.
func (s *Service) UpdateImage(ctx context.Context, a Actor, id uuid.UUID, in ImageInput) (*model.ItemImage, error) {
	img, err := store.SetImagePrimary(ctx, s.db, s.Tenant(a), id, in.IsPrimary)
	if err != nil {
		return nil, err
	}

	s.logger.Info("image updated", "by", a.Username, "id", id, "primary", in.IsPrimary)
	out := withURL(*img)
	return &out, nil
}

// PatchImage is UpdateImage for a partial body; without is_primary nothing
// changes.
func (s *Service) PatchImage(ctx context.Context, a Actor, id uuid.UUID, p ImagePatch) (*model.ItemImage, error) {
	if !p.IsPrimary.Set {
		return s.GetImage(ctx, a, id)
	}
	return s.UpdateImage(ctx, a, id, ImageInput{IsPrimary: p.IsPrimary.Value})
}

// DeleteImage removes one image from its item's gallery.
func (s *Service) DeleteImage(ctx context.Context, a Actor, id uuid.UUID) error {
	tenant := s.Tenant(a)

	var key string
	err := db.RunInTx(ctx, s.db, func(tx db.Querier) error {
		img, err := store.GetImage(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		key = img.BlobKey
		return store.DeleteImage(ctx, tx, tenant, id)
	})
	if err != nil {
		return err
	}

	s.removeBlobs(ctx, []string{key})
	s.logger.Info("image deleted", "by", a.Username, "id", id)
	return nil
}
