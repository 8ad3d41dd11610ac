package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

func newTestImage(itemID uuid.UUID, primary bool, uploaded time.Time) *model.ItemImage {
	id := uuid.New()
	return &model.ItemImage{
		ID:          id,
		ItemID:      itemID,
		BlobKey:     "items/" + itemID.String() + "/" + id.String() + ".jpg",
		ContentType: "image/jpeg",
		Size:        1024,
		Width:       100,
		Height:      80,
		IsPrimary:   primary,
		UploadedAt:  uploaded.UTC().Truncate(time.Microsecond),
	}
}

func primaryCount(t *testing.T, images []model.ItemImage) int {
	t.Helper()
	n := 0
	for _, img := range images {
		if img.IsPrimary {
			n++
		}
	}
	return n
}

func TestCreateImagePrimaryIsExclusive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()
	now := time.Now()

	item, _ := CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk"})

	first := newTestImage(item.ID, true, now)
	if err := CreateImage(ctx, database, first); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	second := newTestImage(item.ID, true, now.Add(time.Second))
	if err := CreateImage(ctx, database, second); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	CreateImage(ctx, database, newTestImage(item.ID, false, now.Add(2*time.Second)))

	images, err := ListImages(ctx, database, tenant, item.ID)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	if n := primaryCount(t, images); n != 1 {
		t.Fatalf("expected exactly 1 primary image, got %d", n)
	}
	if images[0].ID != first.ID || images[0].IsPrimary {
		t.Errorf("expected the first image to be demoted")
	}
	if images[1].ID != second.ID || !images[1].IsPrimary {
		t.Errorf("expected the second image to be primary")
	}
}

func TestCreateImageMissingItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := CreateImage(ctx, database, newTestImage(uuid.New(), false, time.Now()))
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if model.ErrorField(err) != "item_id" {
		t.Errorf("expected field 'item_id', got %q", model.ErrorField(err))
	}
}

func TestSetImagePrimary(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()
	now := time.Now()

	item, _ := CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk"})
	a := newTestImage(item.ID, true, now)
	b := newTestImage(item.ID, false, now.Add(time.Second))
	CreateImage(ctx, database, a)
	CreateImage(ctx, database, b)

	got, err := SetImagePrimary(ctx, database, tenant, b.ID, true)
	if err != nil {
		t.Fatalf("SetImagePrimary: %v", err)
	}
	if !got.IsPrimary {
		t.Errorf("expected returned image to be primary")
	}

	images, _ := ListImages(ctx, database, tenant, item.ID)
	if n := primaryCount(t, images); n != 1 {
		t.Fatalf("expected exactly 1 primary image, got %d", n)
	}
	if !images[1].IsPrimary {
		t.Errorf("expected image b to be primary")
	}

	// Unmarking leaves the item without a primary image.
	if _, err := SetImagePrimary(ctx, database, tenant, b.ID, false); err != nil {
		t.Fatalf("SetImagePrimary(false): %v", err)
	}
	images, _ = ListImages(ctx, database, tenant, item.ID)
	if n := primaryCount(t, images); n != 0 {
		t.Errorf("expected no primary image, got %d", n)
	}

	if _, err := SetImagePrimary(ctx, database, uuid.New(), a.ID, true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func TestDeleteItemCascadesImages(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	item, _ := CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk"})
	img := newTestImage(item.ID, true, time.Now())
	CreateImage(ctx, database, img)

	if err := DeleteItem(ctx, database, tenant, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := GetImage(ctx, database, tenant, img.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected image gone with its item, got %v", err)
	}
	all, _ := ListTenantImages(ctx, database, tenant)
	if len(all) != 0 {
		t.Errorf("expected no images left, got %d", len(all))
	}
}

func TestDeleteImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	item, _ := CreateItem(ctx, database, tenant, ItemRecord{Name: "Red Silk"})
	img := newTestImage(item.ID, false, time.Now())
	CreateImage(ctx, database, img)

	if err := DeleteImage(ctx, database, uuid.New(), img.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}
	if err := DeleteImage(ctx, database, tenant, img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := GetItem(ctx, database, tenant, item.ID); err != nil {
		t.Errorf("item should survive image delete: %v", err)
	}
}

func TestImageWriteErrorPrimaryConflict(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()
	now := time.Now()

	item, err := CreateItem(ctx, database, tenant, ItemRecord{Name: "Lamp"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// Skip clearPrimary to hit the partial unique index directly.
	insert := func(img *model.ItemImage) error {
		_, err := database.ExecContext(ctx, database.Rebind(
			`INSERT INTO item_images (id, item_id, blob_key, content_type, size, width, height, is_primary, uploaded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			img.ID, img.ItemID, img.BlobKey, img.ContentType, img.Size,
			img.Width, img.Height, img.IsPrimary, img.UploadedAt,
		)
		return err
	}
	if err := insert(newTestImage(item.ID, true, now)); err != nil {
		t.Fatalf("first primary: %v", err)
	}
	rawErr := insert(newTestImage(item.ID, true, now.Add(time.Second)))
	if rawErr == nil {
		t.Fatal("expected the index to reject a second primary image")
	}

	err = imageWriteError(rawErr, "creating image")
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if model.ErrorField(err) != "is_primary" {
		t.Errorf("expected field is_primary, got %q", model.ErrorField(err))
	}
}
