package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Reserved tenant selector values accepted by the HTTP API.
const (
	SelectorAll     = "all"
	SelectorBuiltIn = "main-company"
)

// ErrInvalidSelector is returned when a companyId value is neither a
// reserved selector nor a tenant UUID.
var ErrInvalidSelector = errors.New("invalid company selector")

// RefKind distinguishes the built-in dataset from uploaded tenants.
type RefKind int

const (
	RefBuiltIn RefKind = iota
	RefTenant
)

// TenantRef addresses exactly one partition. ID is only meaningful when
// Kind is RefTenant.
type TenantRef struct {
	Kind RefKind
	ID   uuid.UUID
}

func BuiltIn() TenantRef { return TenantRef{Kind: RefBuiltIn} }

func ByID(id uuid.UUID) TenantRef { return TenantRef{Kind: RefTenant, ID: id} }

func (r TenantRef) IsBuiltIn() bool { return r.Kind == RefBuiltIn }

// String renders the ref the way the API accepts it.
func (r TenantRef) String() string {
	if r.IsBuiltIn() {
		return SelectorBuiltIn
	}
	return r.ID.String()
}

// Selector scopes list and analytics queries: either every partition or
// a single one.
type Selector struct {
	All bool
	Ref TenantRef
}

func AllTenants() Selector { return Selector{All: true} }

func Only(ref TenantRef) Selector { return Selector{Ref: ref} }

func (s Selector) String() string {
	if s.All {
		return SelectorAll
	}
	return s.Ref.String()
}

// ParseSelector interprets a companyId query value for list and analytics
// endpoints. Empty or "all" selects every partition.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == SelectorAll {
		return AllTenants(), nil
	}
	ref, err := ParseTenantRef(raw)
	if err != nil {
		return Selector{}, err
	}
	return Only(ref), nil
}

// ParseTenantRef interprets a companyId value for single-record operations.
// Empty selects the built-in dataset; "all" is rejected.
func ParseTenantRef(raw string) (TenantRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == SelectorBuiltIn {
		return BuiltIn(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return TenantRef{}, ErrInvalidSelector
	}
	return ByID(id), nil
}
