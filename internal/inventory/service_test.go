package inventory

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

func newTestService(t *testing.T, tenancy string) (*Service, *blob.LocalStore) {
	t.Helper()
	blobs, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db.NewTestDB(t), blobs, tenancy, logger), blobs
}

func newActor(name string) Actor {
	return Actor{UserID: uuid.New(), Username: name}
}

func strPtr(s string) *string { return &s }

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCategoryNamesAcrossTenants(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice, bob := newActor("alice"), newActor("bob")

	if _, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Cotton"}); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, bob, CategoryInput{Name: "Cotton"}); err != nil {
		t.Fatalf("bob: %v", err)
	}

	_, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: "  Cotton "})
	if !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestSingleTenantSharesCatalog(t *testing.T) {
	svc, _ := newTestService(t, model.TenancySingle)
	ctx := context.Background()
	alice, bob := newActor("alice"), newActor("bob")

	c, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Cotton"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, bob, CategoryInput{Name: "Cotton"}); !errors.Is(err, model.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName in shared tenant, got %v", err)
	}
	if _, err := svc.GetCategory(ctx, bob, c.ID); err != nil {
		t.Errorf("bob should see alice's category: %v", err)
	}
}

func TestCommandValidation(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	tests := []struct {
		name      string
		call      func() error
		wantErr   error
		wantField string
	}{
		{"category without name", func() error {
			_, err := svc.CreateCategory(ctx, alice, CategoryInput{Name: "   "})
			return err
		}, model.ErrInvalidInput, "name"},
		{"unit symbol too long", func() error {
			_, err := svc.CreateUnit(ctx, alice, UnitInput{Name: "Yard", Symbol: "yardyardyard"})
			return err
		}, model.ErrInvalidInput, "symbol"},
		{"item bad category id", func() error {
			_, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Silk", CategoryID: strPtr("42")})
			return err
		}, model.ErrInvalidInput, "category_id"},
		{"negative quantity", func() error {
			_, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Silk", Quantity: "-1.00"})
			return err
		}, model.ErrInvalidQuantity, "quantity"},
		{"three decimals", func() error {
			_, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Silk", Quantity: "3.005"})
			return err
		}, model.ErrInvalidQuantity, "quantity"},
		{"not a number", func() error {
			_, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Silk", Quantity: "lots"})
			return err
		}, model.ErrInvalidQuantity, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := model.ErrorField(err); got != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, got)
			}
		})
	}
}

func TestCreateItemQuantity(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	item, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Silk", Quantity: "3.00"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Quantity.String() != "3.00" {
		t.Errorf("expected 3.00, got %s", item.Quantity)
	}

	plain, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Wool"})
	if plain.Quantity.String() != "0.00" {
		t.Errorf("expected default 0.00, got %s", plain.Quantity)
	}
	if plain.Images == nil {
		t.Error("expected an empty image list, not nil")
	}
}

func TestItemDuplicateByCategory(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	c1, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Fabric"})
	c2, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Sale"})

	if _, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk", CategoryID: strPtr(c1.ID.String())}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk", CategoryID: strPtr(c2.ID.String())}); err != nil {
		t.Fatalf("other category: %v", err)
	}
	_, err := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk", CategoryID: strPtr(c1.ID.String())})
	if !errors.Is(err, model.ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got %v", err)
	}
}

func TestItemReferences(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice, bob := newActor("alice"), newActor("bob")

	bobs, _ := svc.CreateCategory(ctx, bob, CategoryInput{Name: "Bob's"})
	bobUnit, _ := svc.CreateUnit(ctx, bob, UnitInput{Name: "Yard", Symbol: "yd"})

	tests := []struct {
		name      string
		in        ItemInput
		wantErr   error
		wantField string
	}{
		{"foreign category", ItemInput{Name: "Silk", CategoryID: strPtr(bobs.ID.String())}, model.ErrForbiddenReference, "category_id"},
		{"foreign unit", ItemInput{Name: "Silk", UnitID: strPtr(bobUnit.ID.String())}, model.ErrForbiddenReference, "unit_id"},
		{"missing category", ItemInput{Name: "Silk", CategoryID: strPtr(uuid.NewString())}, model.ErrDanglingReference, "category_id"},
		{"missing unit", ItemInput{Name: "Silk", UnitID: strPtr(uuid.NewString())}, model.ErrDanglingReference, "unit_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateItem(ctx, alice, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := model.ErrorField(err); got != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, got)
			}
		})
	}

	items, _ := svc.ListItems(ctx, alice)
	if len(items) != 0 {
		t.Errorf("rejected items must not be stored, got %d", len(items))
	}
}

func TestItemEmbedsReferences(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	c, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Fabric"})
	u, _ := svc.CreateUnit(ctx, alice, UnitInput{Name: "Yard", Symbol: "yd"})

	item, err := svc.CreateItem(ctx, alice, ItemInput{
		Name:       "Red Silk",
		Quantity:   "12.5",
		CategoryID: strPtr(c.ID.String()),
		UnitID:     strPtr(u.ID.String()),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Category == nil || item.Category.Name != "Fabric" {
		t.Errorf("expected embedded category, got %+v", item.Category)
	}
	if item.Unit == nil || item.Unit.Symbol != "yd" {
		t.Errorf("expected embedded unit, got %+v", item.Unit)
	}

	items, err := svc.ListItems(ctx, alice)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Category == nil || items[0].Unit == nil {
		t.Fatalf("expected list to embed references, got %+v", items)
	}
	if items[0].Quantity.String() != "12.50" {
		t.Errorf("expected 12.50, got %s", items[0].Quantity)
	}
}

func TestUpdateVersusPatchItem(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	c, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Fabric"})
	item, _ := svc.CreateItem(ctx, alice, ItemInput{
		Name:        "Red Silk",
		Description: "Shiny",
		Quantity:    "5",
		CategoryID:  strPtr(c.ID.String()),
	})

	// PATCH touches only what is sent.
	patched, err := svc.PatchItem(ctx, alice, item.ID, ItemPatch{Quantity: Some(RawQuantity("7.25"))})
	if err != nil {
		t.Fatalf("PatchItem: %v", err)
	}
	if patched.Quantity.String() != "7.25" || patched.Description != "Shiny" || patched.CategoryID == nil {
		t.Errorf("patch changed more than quantity: %+v", patched)
	}
	if !patched.CreatedAt.Equal(item.CreatedAt) {
		t.Errorf("created_at changed on patch")
	}

	// A null category clears it.
	cleared, err := svc.PatchItem(ctx, alice, item.ID, ItemPatch{CategoryID: Some[*string](nil)})
	if err != nil {
		t.Fatalf("PatchItem null category: %v", err)
	}
	if cleared.CategoryID != nil || cleared.Category != nil {
		t.Errorf("expected category cleared, got %v", cleared.CategoryID)
	}

	// PUT replaces everything; omitted fields are reset.
	replaced, err := svc.UpdateItem(ctx, alice, item.ID, ItemInput{Name: "Blue Silk"})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if replaced.Name != "Blue Silk" || replaced.Description != "" || replaced.Quantity.String() != "0.00" {
		t.Errorf("unexpected item after replace: %+v", replaced)
	}
	if !replaced.CreatedAt.Equal(item.CreatedAt) {
		t.Errorf("created_at changed on update")
	}
}

func TestOtherTenantSeesNotFound(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice, mallory := newActor("alice"), newActor("mallory")

	c, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Fabric"})
	item, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk"})

	checks := map[string]error{
		"get category":    func() error { _, err := svc.GetCategory(ctx, mallory, c.ID); return err }(),
		"patch category":  func() error { _, err := svc.PatchCategory(ctx, mallory, c.ID, CategoryPatch{Name: Some("Mine")}); return err }(),
		"delete category": svc.DeleteCategory(ctx, mallory, c.ID),
		"get item":        func() error { _, err := svc.GetItem(ctx, mallory, item.ID); return err }(),
		"update item":     func() error { _, err := svc.UpdateItem(ctx, mallory, item.ID, ItemInput{Name: "Mine"}); return err }(),
		"delete item":     svc.DeleteItem(ctx, mallory, item.ID),
	}
	for name, err := range checks {
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}

	if _, err := svc.GetItem(ctx, alice, item.ID); err != nil {
		t.Errorf("alice's item should be untouched: %v", err)
	}
}

func TestDeleteCategoryKeepsItems(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	c, _ := svc.CreateCategory(ctx, alice, CategoryInput{Name: "Fabric"})
	item, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk", CategoryID: strPtr(c.ID.String())})

	if err := svc.DeleteCategory(ctx, alice, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := svc.GetItem(ctx, alice, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.CategoryID != nil || got.Category != nil {
		t.Errorf("expected category cleared, got %v", got.CategoryID)
	}
}

func TestImageGallery(t *testing.T) {
	svc, blobs := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	item, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk"})

	first, err := svc.AttachImage(ctx, alice, ImageUpload{ItemID: item.ID.String(), IsPrimary: true, Data: testPNG(t, 40, 30)})
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if first.Width != 40 || first.Height != 30 || first.ContentType != "image/jpeg" {
		t.Errorf("unexpected image metadata: %+v", first)
	}
	if first.URL == "" {
		t.Error("expected image url")
	}

	second, err := svc.AttachImage(ctx, alice, ImageUpload{ItemID: item.ID.String(), IsPrimary: true, Data: testPNG(t, 10, 10)})
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}

	got, _ := svc.GetItem(ctx, alice, item.ID)
	if len(got.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(got.Images))
	}
	primaries := 0
	for _, img := range got.Images {
		if img.IsPrimary {
			primaries++
			if img.ID != second.ID {
				t.Errorf("expected the newest upload to be primary")
			}
		}
	}
	if primaries != 1 {
		t.Errorf("expected exactly one primary image, got %d", primaries)
	}

	if _, err := svc.UpdateImage(ctx, alice, first.ID, ImageInput{IsPrimary: true}); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}
	images, _ := svc.ListImages(ctx, alice, item.ID)
	if !images[0].IsPrimary || images[1].IsPrimary {
		t.Errorf("expected primary to move back to the first image")
	}

	_, rc, err := svc.OpenImage(ctx, alice, first.ID)
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if int64(len(data)) != first.Size {
		t.Errorf("expected %d bytes, got %d", first.Size, len(data))
	}

	// Deleting the item takes the images and their blobs with it.
	stored, _ := svc.GetImage(ctx, alice, second.ID)
	if err := svc.DeleteItem(ctx, alice, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := svc.GetImage(ctx, alice, second.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected image gone, got %v", err)
	}
	if _, err := blobs.Open(ctx, blob.ImageKey(alice.UserID, item.ID, stored.ID)); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected blob removed, got %v", err)
	}
}

func TestAttachImageFailures(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice, mallory := newActor("alice"), newActor("mallory")

	item, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk"})

	tests := []struct {
		name      string
		actor     Actor
		up        ImageUpload
		wantErr   error
		wantField string
	}{
		{"not an image", alice, ImageUpload{ItemID: item.ID.String(), Data: []byte("hello")}, model.ErrInvalidImage, "image"},
		{"no data", alice, ImageUpload{ItemID: item.ID.String()}, model.ErrInvalidInput, "image"},
		{"bad item id", alice, ImageUpload{ItemID: "nope", Data: testPNG(t, 2, 2)}, model.ErrInvalidInput, "item_id"},
		{"other tenant", mallory, ImageUpload{ItemID: item.ID.String(), Data: testPNG(t, 2, 2)}, model.ErrNotFound, "item_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AttachImage(ctx, tt.actor, tt.up)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := model.ErrorField(err); got != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, got)
			}
		})
	}

	images, _ := svc.ListImages(ctx, alice, item.ID)
	if len(images) != 0 {
		t.Errorf("failed uploads must not leave images, got %d", len(images))
	}
}

type failingBlobs struct{ blob.Store }

func (failingBlobs) Put(context.Context, string, []byte, string) error {
	return model.ErrStorageUnavailable
}

func TestAttachImageStorageUnavailable(t *testing.T) {
	svc, local := newTestService(t, model.TenancyMulti)
	svc.blobs = failingBlobs{Store: local}
	ctx := context.Background()
	alice := newActor("alice")

	item, _ := svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk"})

	_, err := svc.AttachImage(ctx, alice, ImageUpload{ItemID: item.ID.String(), Data: testPNG(t, 4, 4)})
	if !errors.Is(err, model.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	images, _ := svc.ListImages(ctx, alice, item.ID)
	if len(images) != 0 {
		t.Errorf("expected no image row, got %d", len(images))
	}
}

func TestExportItems(t *testing.T) {
	svc, _ := newTestService(t, model.TenancyMulti)
	ctx := context.Background()
	alice := newActor("alice")

	svc.CreateItem(ctx, alice, ItemInput{Name: "Red Silk", Quantity: "2"})
	svc.CreateItem(ctx, newActor("bob"), ItemInput{Name: "Hidden"})

	var buf bytes.Buffer
	if err := svc.ExportItems(ctx, alice, &buf); err != nil {
		t.Fatalf("ExportItems: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows("Items")
	if len(rows) != 2 || rows[1][1] != "Red Silk" {
		t.Errorf("expected only alice's item, got %v", rows)
	}
}
