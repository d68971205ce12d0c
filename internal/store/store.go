package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidPartition = errors.New("invalid partition name")

// Store is the data access interface. All database operations go through here.
//
// Tenants live in a registry; each tenant's sales live in their own
// partition, addressed by name. The built-in partition always exists.
type Store interface {
	Ping(ctx context.Context) error

	// CreateTenant inserts the registry row and creates its partition in
	// one transaction. The built-in partition is never recreated.
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)
	// ListTenants returns the built-in tenant first, then newest first.
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	UpdateTenantRecordCount(ctx context.Context, id uuid.UUID, count int) error
	// DeleteTenant drops the partition and removes the registry row in one
	// transaction.
	DeleteTenant(ctx context.Context, id uuid.UUID) error

	MaxSaleID(ctx context.Context, partition string) (int64, error)
	// InsertSales writes the batch atomically. A sale_id collision fails
	// the whole batch with ErrDuplicateKey.
	InsertSales(ctx context.Context, partition string, sales []*models.Sale) error
	InsertSale(ctx context.Context, partition string, sale *models.Sale) error
	GetSale(ctx context.Context, partition string, id uuid.UUID) (*models.Sale, error)
	UpdateSale(ctx context.Context, partition string, sale *models.Sale) error
	DeleteSale(ctx context.Context, partition string, id uuid.UUID) error
	ListSales(ctx context.Context, partition string, filter SaleQuery) ([]*models.Sale, int, error)
	// ScanSales returns every matching sale ordered by sale_id.
	ScanSales(ctx context.Context, partition string, filter models.SaleFilter) ([]*models.Sale, error)
	CountSales(ctx context.Context, partition string) (int, error)
	TotalRevenue(ctx context.Context, partition string) (float64, error)
	GroupSales(ctx context.Context, partition string, dim models.Dimension) ([]models.GroupStat, error)
	PurgeSales(ctx context.Context, partition string) error
}

// SaleQuery is a filtered page of one partition, ordered by sale_id.
type SaleQuery struct {
	models.SaleFilter
	Page  int
	Limit int
}

// Pagination bounds shared by every listing.
const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

// Normalize clamps Page and Limit into their valid ranges.
func (q SaleQuery) Normalize() SaleQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

func (q SaleQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

var partitionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// checkPartition guards every statement that interpolates a partition name.
func checkPartition(name string) error {
	if !partitionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidPartition, name)
	}
	return nil
}

// groupColumn maps a dimension to its column. Unknown dimensions are rejected
// before reaching SQL.
func groupColumn(dim models.Dimension) (string, error) {
	switch dim {
	case models.DimBranch, models.DimCity, models.DimCategory, models.DimCustomerType:
		return string(dim), nil
	default:
		return "", fmt.Errorf("unknown dimension %q", dim)
	}
}

// PartitionFor resolves ref to the partition holding its sales. Unknown
// tenant ids yield ErrNotFound.
func PartitionFor(ctx context.Context, s Store, ref models.TenantRef) (string, error) {
	p, err := ResolvePartition(ctx, s, ref)
	return p.Name, err
}

// ResolvePartition is PartitionFor keeping the owning tenant, so sales read
// through a tenant id report the same company as the all-tenant listing.
func ResolvePartition(ctx context.Context, s Store, ref models.TenantRef) (PartitionInfo, error) {
	if ref.IsBuiltIn() {
		return PartitionInfo{Name: models.BuiltInPartition}, nil
	}
	t, err := s.GetTenant(ctx, ref.ID)
	if err != nil {
		return PartitionInfo{}, err
	}
	return PartitionInfo{Name: t.Partition, Tenant: t}, nil
}

// filterConditions renders the non-empty filter fields as equality
// conditions. ph formats the n-th (1-based) bind placeholder.
func filterConditions(f models.SaleFilter, ph func(n int) string) (string, []any) {
	var conditions []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, column+" = "+ph(len(args)))
	}
	add("branch", f.Branch)
	add("city", f.City)
	add("customer_type", f.CustomerType)
	add("product_category", f.ProductCategory)

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// saleColumns is the column order used by every insert and select.
var saleColumns = []string{
	"id", "sale_id", "branch", "city", "customer_type", "gender",
	"product_name", "product_category", "unit_price", "quantity", "tax",
	"total_price", "reward_points", "extra", "created_at", "updated_at",
}

var saleColumnList = strings.Join(saleColumns, ", ")

// prepareSale fills identity and timestamps for a new row.
func prepareSale(sale *models.Sale, now time.Time) {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
}

// PartitionInfo names one partition and the tenant that owns it. Tenant is
// nil for the built-in partition.
type PartitionInfo struct {
	Name   string
	Tenant *models.Tenant
}

// CompanyID is the owning tenant id as reported on sales, nil for the
// built-in partition.
func (p PartitionInfo) CompanyID() *uuid.UUID {
	if p.Tenant == nil || p.Tenant.IsDefault {
		return nil
	}
	id := p.Tenant.ID
	return &id
}

// ListPartitions returns the built-in partition followed by every uploaded
// tenant's partition, newest first.
func ListPartitions(ctx context.Context, s Store) ([]PartitionInfo, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	parts := []PartitionInfo{{Name: models.BuiltInPartition}}
	for _, t := range tenants {
		if t.Partition == models.BuiltInPartition {
			parts[0].Tenant = t
			continue
		}
		parts = append(parts, PartitionInfo{Name: t.Partition, Tenant: t})
	}
	return parts, nil
}
