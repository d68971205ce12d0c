package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/analytics"
	"github.com/kiranshivaraju/salesboard/internal/cache"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/internal/store/storetest"
	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock Cache ---

type mockCache struct {
	data    map[string][]byte
	getErr  error
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *mockCache) Ping(context.Context) error { return nil }

func (m *mockCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

func TestSummary_SinglePartition(t *testing.T) {
	s := storetest.NewSQLite(t)
	tenant := storetest.Tenant(t, s, "Acme",
		storetest.Sale(1, "X", 10), storetest.Sale(2, "X", 5), storetest.Sale(3, "Y", 3))

	svc := analytics.NewService(s, cache.NoopCache{}, time.Minute, nil)
	sum, err := svc.Summary(context.Background(), models.Only(tenant.Ref()))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalSales)
	assert.Equal(t, 18.0, sum.TotalRevenue)
	assert.Equal(t, []models.GroupStat{
		{Key: "X", Count: 2, Revenue: 15},
		{Key: "Y", Count: 1, Revenue: 3},
	}, sum.ByBranch)
}

func TestSummary_AllPartitions(t *testing.T) {
	s := storetest.NewSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.InsertSales(ctx, models.BuiltInPartition, []*models.Sale{storetest.Sale(1, "X", 1)}))
	storetest.Tenant(t, s, "A", storetest.Sale(1, "X", 10))
	storetest.Tenant(t, s, "B", storetest.Sale(1, "Z", 2))

	svc := analytics.NewService(s, cache.NoopCache{}, time.Minute, nil)
	sum, err := svc.Summary(ctx, models.AllTenants())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalSales)
	assert.Equal(t, 13.0, sum.TotalRevenue)
	assert.Equal(t, []models.GroupStat{
		{Key: "X", Count: 2, Revenue: 11},
		{Key: "Z", Count: 1, Revenue: 2},
	}, sum.ByBranch)
}

func TestSummary_BuiltInIsConfinedToItsPartition(t *testing.T) {
	s := storetest.NewSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.InsertSales(ctx, models.BuiltInPartition, []*models.Sale{storetest.Sale(1, "X", 1)}))
	storetest.Tenant(t, s, "A", storetest.Sale(1, "X", 10))

	svc := analytics.NewService(s, cache.NoopCache{}, time.Minute, nil)
	sum, err := svc.Summary(ctx, models.Only(models.BuiltIn()))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalSales)
}

func TestSummary_UnknownTenant(t *testing.T) {
	s := storetest.NewSQLite(t)
	svc := analytics.NewService(s, cache.NoopCache{}, time.Minute, nil)

	_, err := svc.Summary(context.Background(), models.Only(models.ByID(uuid.New())))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSummary_ServedFromCache(t *testing.T) {
	s := storetest.NewSQLite(t)
	c := newMockCache()
	cached, _ := json.Marshal(models.Summary{TotalSales: 99})
	c.data[cache.SummaryKey("all")] = cached

	svc := analytics.NewService(s, c, time.Minute, nil)
	sum, err := svc.Summary(context.Background(), models.AllTenants())
	require.NoError(t, err)
	assert.Equal(t, 99, sum.TotalSales)
}

func TestSummary_PopulatesCache(t *testing.T) {
	s := storetest.NewSQLite(t)
	c := newMockCache()
	svc := analytics.NewService(s, c, time.Minute, nil)

	_, err := svc.Summary(context.Background(), models.Only(models.BuiltIn()))
	require.NoError(t, err)
	assert.Contains(t, c.data, cache.SummaryKey("main-company"))
}

func TestSummary_CacheErrorFailsOpen(t *testing.T) {
	s := storetest.NewSQLite(t)
	c := newMockCache()
	c.getErr = errors.New("connection refused")
	storetest.Tenant(t, s, "A", storetest.Sale(1, "X", 10))

	svc := analytics.NewService(s, c, time.Minute, nil)
	sum, err := svc.Summary(context.Background(), models.AllTenants())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalSales)
}

func TestInvalidate(t *testing.T) {
	c := newMockCache()
	svc := analytics.NewService(nil, c, time.Minute, nil)
	id := uuid.New()

	svc.Invalidate(context.Background(), models.ByID(id))
	assert.ElementsMatch(t, []string{cache.SummaryKey(id.String()), cache.SummaryKey("all")}, c.deleted)
}
