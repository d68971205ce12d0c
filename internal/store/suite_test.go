package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeCase is one behaviour every Store backend must satisfy. Cases that
// touch the built-in partition purge it first so they can share a database.
type storeCase struct {
	name string
	run  func(t *testing.T, s store.Store)
}

var storeCases = []storeCase{
	{"CreateAndGetTenant", testCreateAndGetTenant},
	{"SingleDefaultTenant", testSingleDefaultTenant},
	{"ListTenantsOrdering", testListTenantsOrdering},
	{"UpdateRecordCount", testUpdateRecordCount},
	{"DeleteTenantDropsPartition", testDeleteTenantDropsPartition},
	{"DeleteTenantNotFound", testDeleteTenantNotFound},
	{"InsertSalesBatchIsAtomic", testInsertSalesBatchIsAtomic},
	{"InsertSaleDuplicate", testInsertSaleDuplicate},
	{"SaleCRUD", testSaleCRUD},
	{"ListSalesFilterAndPaginate", testListSalesFilterAndPaginate},
	{"GroupSales", testGroupSales},
	{"PurgeBuiltIn", testPurgeBuiltIn},
	{"RejectsBadPartitionName", testRejectsBadPartitionName},
}

func runStoreSuite(t *testing.T, s store.Store) {
	for _, tc := range storeCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, s)
		})
	}
}

func newTenant(t *testing.T, s store.Store, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Name:       name,
		CSVHeaders: []string{"Branch", "Price"},
		Partition:  fmt.Sprintf("sales_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
	}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))
	return tenant
}

func sale(id int64, branch string, total float64) *models.Sale {
	return &models.Sale{
		SaleID:     id,
		Branch:     branch,
		City:       "Yangon",
		Quantity:   1,
		TotalPrice: total,
	}
}

func testCreateAndGetTenant(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Acme")

	got, err := s.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"Branch", "Price"}, got.CSVHeaders)
	assert.Equal(t, tenant.Partition, got.Partition)
	assert.False(t, got.IsDefault)

	n, err := s.CountSales(ctx, tenant.Partition)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.GetTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSingleDefaultTenant(t *testing.T, s store.Store) {
	ctx := context.Background()
	def, err := s.GetDefaultTenant(ctx)
	if errors.Is(err, store.ErrNotFound) {
		def = &models.Tenant{Name: "Supermarket Sales Company", IsDefault: true, Partition: models.BuiltInPartition}
		require.NoError(t, s.CreateTenant(ctx, def))
	} else {
		require.NoError(t, err)
	}

	got, err := s.GetDefaultTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	second := &models.Tenant{Name: "Other", IsDefault: true, Partition: "sales_default_clash"}
	assert.ErrorIs(t, s.CreateTenant(ctx, second), store.ErrDuplicateKey)
}

func testListTenantsOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	older := newTenant(t, s, "Older")
	time.Sleep(5 * time.Millisecond)
	newer := newTenant(t, s, "Newer")

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)

	pos := map[uuid.UUID]int{}
	for i, tn := range tenants {
		pos[tn.ID] = i
		if tn.IsDefault {
			assert.Equal(t, 0, i, "built-in tenant must be listed first")
		}
	}
	assert.Less(t, pos[newer.ID], pos[older.ID])
}

func testUpdateRecordCount(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Counter")

	require.NoError(t, s.UpdateTenantRecordCount(ctx, tenant.ID, 42))
	got, err := s.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.RecordCount)

	assert.ErrorIs(t, s.UpdateTenantRecordCount(ctx, uuid.New(), 1), store.ErrNotFound)
}

func testDeleteTenantDropsPartition(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Doomed")
	require.NoError(t, s.InsertSales(ctx, tenant.Partition, []*models.Sale{sale(1, "A", 10)}))

	require.NoError(t, s.DeleteTenant(ctx, tenant.ID))

	_, err := s.GetTenant(ctx, tenant.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.CountSales(ctx, tenant.Partition)
	assert.Error(t, err, "partition should no longer exist")
}

func testDeleteTenantNotFound(t *testing.T, s store.Store) {
	assert.ErrorIs(t, s.DeleteTenant(context.Background(), uuid.New()), store.ErrNotFound)
}

func testInsertSalesBatchIsAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Batch")

	err := s.InsertSales(ctx, tenant.Partition, []*models.Sale{sale(1, "A", 1), sale(1, "B", 2), sale(2, "C", 3)})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	n, err := s.CountSales(ctx, tenant.Partition)
	require.NoError(t, err)
	assert.Zero(t, n, "failed batch must not leave partial rows")

	require.NoError(t, s.InsertSales(ctx, tenant.Partition, []*models.Sale{sale(5, "A", 1), sale(9, "B", 2)}))
	maxID, err := s.MaxSaleID(ctx, tenant.Partition)
	require.NoError(t, err)
	assert.Equal(t, int64(9), maxID)
}

func testInsertSaleDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Dup")

	require.NoError(t, s.InsertSale(ctx, tenant.Partition, sale(7, "A", 1)))
	assert.ErrorIs(t, s.InsertSale(ctx, tenant.Partition, sale(7, "B", 2)), store.ErrDuplicateKey)
}

func testSaleCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Crud")

	in := sale(1, "A", 31.5)
	in.Extra.Set("Store Manager", "Aye")
	in.Extra.Set("Notes", "promo")
	require.NoError(t, s.InsertSale(ctx, tenant.Partition, in))
	require.NotEqual(t, uuid.Nil, in.ID)

	got, err := s.GetSale(ctx, tenant.Partition, in.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.SaleID)
	assert.Equal(t, 31.5, got.TotalPrice)
	assert.Equal(t, models.Extras{{Key: "Store Manager", Value: "Aye"}, {Key: "Notes", Value: "promo"}}, got.Extra)

	got.Branch = "B"
	require.NoError(t, s.UpdateSale(ctx, tenant.Partition, got))
	again, err := s.GetSale(ctx, tenant.Partition, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", again.Branch)

	require.NoError(t, s.DeleteSale(ctx, tenant.Partition, in.ID))
	_, err = s.GetSale(ctx, tenant.Partition, in.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSale(ctx, tenant.Partition, in.ID), store.ErrNotFound)
}

func testListSalesFilterAndPaginate(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Pages")

	var batch []*models.Sale
	for i := int64(25); i >= 1; i-- {
		branch := "A"
		if i%5 == 0 {
			branch = "B"
		}
		batch = append(batch, sale(i, branch, float64(i)))
	}
	require.NoError(t, s.InsertSales(ctx, tenant.Partition, batch))

	page, total, err := s.ListSales(ctx, tenant.Partition, store.SaleQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, page, 10)
	assert.Equal(t, int64(11), page[0].SaleID)
	assert.Equal(t, int64(20), page[9].SaleID)

	filtered, total, err := s.ListSales(ctx, tenant.Partition, store.SaleQuery{
		SaleFilter: models.SaleFilter{Branch: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, filtered, 5)
	assert.Equal(t, int64(5), filtered[0].SaleID)

	all, err := s.ScanSales(ctx, tenant.Partition, models.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func testGroupSales(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenant := newTenant(t, s, "Groups")
	require.NoError(t, s.InsertSales(ctx, tenant.Partition, []*models.Sale{
		sale(1, "X", 10), sale(2, "X", 5), sale(3, "Y", 3), sale(4, "", 1),
	}))

	groups, err := s.GroupSales(ctx, tenant.Partition, models.DimBranch)
	require.NoError(t, err)

	byKey := map[string]models.GroupStat{}
	for _, g := range groups {
		byKey[g.Key] = g
	}
	assert.Equal(t, models.GroupStat{Key: "X", Count: 2, Revenue: 15}, byKey["X"])
	assert.Equal(t, models.GroupStat{Key: "Y", Count: 1, Revenue: 3}, byKey["Y"])
	assert.Equal(t, models.GroupStat{Key: "", Count: 1, Revenue: 1}, byKey[""])

	revenue, err := s.TotalRevenue(ctx, tenant.Partition)
	require.NoError(t, err)
	assert.Equal(t, 19.0, revenue)
}

func testPurgeBuiltIn(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PurgeSales(ctx, models.BuiltInPartition))
	require.NoError(t, s.InsertSales(ctx, models.BuiltInPartition, []*models.Sale{sale(1, "A", 1), sale(2, "B", 2)}))

	n, err := s.CountSales(ctx, models.BuiltInPartition)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.PurgeSales(ctx, models.BuiltInPartition))
	n, err = s.CountSales(ctx, models.BuiltInPartition)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRejectsBadPartitionName(t *testing.T, s store.Store) {
	_, err := s.CountSales(context.Background(), `sales"; DROP TABLE tenants; --`)
	assert.ErrorIs(t, err, store.ErrInvalidPartition)

	err = s.CreateTenant(context.Background(), &models.Tenant{Name: "bad", Partition: "Robert'); --"})
	assert.ErrorIs(t, err, store.ErrInvalidPartition)
}
