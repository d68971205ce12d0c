// Package models contains shared data models used across the salesboard codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// BuiltInPartition is the storage partition that holds the seeded example
// dataset. It exists from the first migration onward, whether or not the
// built-in tenant row has been created yet.
const BuiltInPartition = "sales"

// Tenant is one isolated dataset ("company"): an uploaded CSV or the built-in
// example data. Every sale belongs to exactly one tenant partition.
type Tenant struct {
	ID          uuid.UUID `db:"id"             json:"id"`
	Name        string    `db:"name"           json:"name"`
	IsDefault   bool      `db:"is_default"     json:"is_default"`
	CSVHeaders  []string  `db:"csv_headers"    json:"csv_headers"`
	RecordCount int       `db:"record_count"   json:"record_count"`
	Partition   string    `db:"partition_name" json:"partition"`
	CreatedAt   time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"     json:"updated_at"`
}

// Ref returns the TenantRef addressing this tenant's partition.
func (t *Tenant) Ref() TenantRef {
	if t.IsDefault {
		return BuiltIn()
	}
	return ByID(t.ID)
}
