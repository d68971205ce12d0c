// Package sales serves listing and single-record operations over tenant
// partitions.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

var (
	ErrConflict    = errors.New("a sale with this sale_id already exists")
	ErrInvalidSale = errors.New("invalid sale")
)

// Invalidator drops cached analytics made stale by writes to a tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, ref models.TenantRef)
}

// Page is one page of a listing plus the total number of matches.
type Page struct {
	Sales []*models.Sale
	Total int
	Page  int
	Limit int
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	SaleID          *int64         `json:"sale_id"`
	Branch          *string        `json:"branch"`
	City            *string        `json:"city"`
	CustomerType    *string        `json:"customer_type"`
	Gender          *string        `json:"gender"`
	ProductName     *string        `json:"product_name"`
	ProductCategory *string        `json:"product_category"`
	UnitPrice       *float64       `json:"unit_price"`
	Quantity        *int           `json:"quantity"`
	Tax             *float64       `json:"tax"`
	TotalPrice      *float64       `json:"total_price"`
	RewardPoints    *int           `json:"reward_points"`
	Extra           *models.Extras `json:"extra"`
}

func (p Patch) apply(s *models.Sale) {
	if p.SaleID != nil {
		s.SaleID = *p.SaleID
	}
	if p.Branch != nil {
		s.Branch = *p.Branch
	}
	if p.City != nil {
		s.City = *p.City
	}
	if p.CustomerType != nil {
		s.CustomerType = *p.CustomerType
	}
	if p.Gender != nil {
		s.Gender = *p.Gender
	}
	if p.ProductName != nil {
		s.ProductName = *p.ProductName
	}
	if p.ProductCategory != nil {
		s.ProductCategory = *p.ProductCategory
	}
	if p.UnitPrice != nil {
		s.UnitPrice = *p.UnitPrice
	}
	if p.Quantity != nil {
		s.Quantity = *p.Quantity
	}
	if p.Tax != nil {
		s.Tax = *p.Tax
	}
	if p.TotalPrice != nil {
		s.TotalPrice = *p.TotalPrice
	}
	if p.RewardPoints != nil {
		s.RewardPoints = *p.RewardPoints
	}
	if p.Extra != nil {
		s.Extra = *p.Extra
	}
}

type Service struct {
	store       store.Store
	invalidator Invalidator
}

func NewService(s store.Store, inv Invalidator) *Service {
	return &Service{store: s, invalidator: inv}
}

// List returns one page of sales matching q. An unknown tenant lists as
// empty. Selecting every tenant loads
// each partition in turn, built-in first, and merges them by sale_id; ties
// keep partition order.
func (s *Service) List(ctx context.Context, sel models.Selector, q store.SaleQuery) (*Page, error) {
	q = q.Normalize()
	if !sel.All {
		part, err := store.ResolvePartition(ctx, s.store, sel.Ref)
		if errors.Is(err, store.ErrNotFound) {
			return &Page{Sales: []*models.Sale{}, Page: q.Page, Limit: q.Limit}, nil
		}
		if err != nil {
			return nil, err
		}
		sales, total, err := s.store.ListSales(ctx, part.Name, q)
		if err != nil {
			return nil, err
		}
		stamp(sales, part.CompanyID())
		return &Page{Sales: sales, Total: total, Page: q.Page, Limit: q.Limit}, nil
	}

	parts, err := store.ListPartitions(ctx, s.store)
	if err != nil {
		return nil, err
	}
	var merged []*models.Sale
	for _, p := range parts {
		sales, err := s.store.ScanSales(ctx, p.Name, q.SaleFilter)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p.Name, err)
		}
		stamp(sales, p.CompanyID())
		merged = append(merged, sales...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SaleID < merged[j].SaleID
	})

	page := &Page{Sales: []*models.Sale{}, Total: len(merged), Page: q.Page, Limit: q.Limit}
	if start := q.Offset(); start < len(merged) {
		page.Sales = merged[start:min(start+q.Limit, len(merged))]
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, ref models.TenantRef, id uuid.UUID) (*models.Sale, error) {
	part, err := store.ResolvePartition(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	partition := part.Name
	sale, err := s.store.GetSale(ctx, partition, id)
	if err != nil {
		return nil, err
	}
	sale.CompanyID = part.CompanyID()
	return sale, nil
}

// Create inserts sale into ref's partition. A zero sale_id is replaced by
// one past the partition's current maximum.
func (s *Service) Create(ctx context.Context, ref models.TenantRef, sale *models.Sale) (*models.Sale, error) {
	if err := validate(sale); err != nil {
		return nil, err
	}
	part, err := store.ResolvePartition(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	partition := part.Name

	if sale.SaleID == 0 {
		maxID, err := s.store.MaxSaleID(ctx, partition)
		if err != nil {
			return nil, err
		}
		sale.SaleID = maxID + 1
	}
	if sale.Quantity == 0 {
		sale.Quantity = 1
	}

	if err := s.store.InsertSale(ctx, partition, sale); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	sale.CompanyID = part.CompanyID()
	s.written(ctx, ref, partition)
	return sale, nil
}

func (s *Service) Update(ctx context.Context, ref models.TenantRef, id uuid.UUID, patch Patch) (*models.Sale, error) {
	if patch.SaleID != nil && *patch.SaleID <= 0 {
		return nil, fmt.Errorf("%w: sale_id must be positive", ErrInvalidSale)
	}
	part, err := store.ResolvePartition(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	partition := part.Name
	sale, err := s.store.GetSale(ctx, partition, id)
	if err != nil {
		return nil, err
	}

	patch.apply(sale)
	if err := validate(sale); err != nil {
		return nil, err
	}

	if err := s.store.UpdateSale(ctx, partition, sale); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	sale.CompanyID = part.CompanyID()
	s.written(ctx, ref, partition)
	return sale, nil
}

func (s *Service) Delete(ctx context.Context, ref models.TenantRef, id uuid.UUID) error {
	partition, err := store.PartitionFor(ctx, s.store, ref)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSale(ctx, partition, id); err != nil {
		return err
	}
	s.written(ctx, ref, partition)
	return nil
}

// written refreshes the owning tenant's record count and drops cached
// analytics. Failures are logged; the write itself already succeeded.
func (s *Service) written(ctx context.Context, ref models.TenantRef, partition string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, ref)
	}

	var tenant *models.Tenant
	var err error
	if ref.IsBuiltIn() {
		tenant, err = s.store.GetDefaultTenant(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
	} else {
		tenant, err = s.store.GetTenant(ctx, ref.ID)
	}
	if err == nil {
		var count int
		count, err = s.store.CountSales(ctx, partition)
		if err == nil {
			err = s.store.UpdateTenantRecordCount(ctx, tenant.ID, count)
		}
	}
	if err != nil {
		slog.Warn("record count refresh failed", "partition", partition, "error", err)
	}
}

func validate(sale *models.Sale) error {
	switch {
	case sale == nil:
		return fmt.Errorf("%w: missing body", ErrInvalidSale)
	case sale.SaleID < 0:
		return fmt.Errorf("%w: sale_id must not be negative", ErrInvalidSale)
	case sale.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidSale)
	case sale.UnitPrice < 0 || sale.Tax < 0 || sale.TotalPrice < 0:
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidSale)
	}
	return nil
}

func stamp(sales []*models.Sale, id *uuid.UUID) {
	for _, s := range sales {
		s.CompanyID = id
	}
}
