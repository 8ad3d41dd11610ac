package model

import "github.com/google/uuid"

// Unit is a unit of measure, e.g. Yard (yd).
type Unit struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID uuid.UUID `db:"tenant_id" json:"-"`
	Name     string    `db:"name" json:"name"`
	Symbol   string    `db:"symbol" json:"symbol"`
}
