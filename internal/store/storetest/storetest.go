// Package storetest provides store fixtures for tests in other packages.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/stretchr/testify/require"
)

// NewSQLite opens an SQLite store in a temporary directory that is removed
// when the test ends.
func NewSQLite(t testing.TB) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sales.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Tenant registers an uploaded tenant with a fresh partition and fills it
// with sales.
func Tenant(t testing.TB, s store.Store, name string, sales ...*models.Sale) *models.Tenant {
	t.Helper()
	ctx := context.Background()
	tenant := &models.Tenant{
		Name:      name,
		Partition: fmt.Sprintf("sales_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
	}
	require.NoError(t, s.CreateTenant(ctx, tenant))
	if len(sales) > 0 {
		require.NoError(t, s.InsertSales(ctx, tenant.Partition, sales))
	}
	tenant.RecordCount = len(sales)
	require.NoError(t, s.UpdateTenantRecordCount(ctx, tenant.ID, len(sales)))
	return tenant
}

// Sale builds a minimal sale.
func Sale(id int64, branch string, total float64) *models.Sale {
	return &models.Sale{SaleID: id, Branch: branch, Quantity: 1, TotalPrice: total}
}
