package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemImage is one picture in an item's gallery. The bytes live in the blob
// store under BlobKey.
type ItemImage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ItemID      uuid.UUID `db:"item_id" json:"item_id"`
	BlobKey     string    `db:"blob_key" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size" json:"size"`
	Width       int       `db:"width" json:"width"`
	Height      int       `db:"height" json:"height"`
	IsPrimary   bool      `db:"is_primary" json:"is_primary"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`

	URL string `db:"-" json:"url,omitempty"`
}
