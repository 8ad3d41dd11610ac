package model

import "github.com/google/uuid"

// Tenancy modes.
const (
	TenancyMulti  = "multi"
	TenancySingle = "single"
)

// ImplicitTenant owns every record when running in single-tenant mode.
var ImplicitTenant = uuid.Nil
