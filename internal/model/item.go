package model

import (
	"time"

	"github.com/google/uuid"
)

// Item represents a stocked item with a decimal quantity.
type Item struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TenantID    uuid.UUID  `db:"tenant_id" json:"-"`
	CategoryID  *uuid.UUID `db:"category_id" json:"category_id"`
	UnitID      *uuid.UUID `db:"unit_id" json:"unit_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Quantity    Quantity   `db:"quantity" json:"quantity"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`

	// Resolved references (not always populated).
	Category *Category   `db:"-" json:"category"`
	Unit     *Unit       `db:"-" json:"unit"`
	Images   []ItemImage `db:"-" json:"images"`
}
