package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/salesboard/internal/ingest"
	"github.com/kiranshivaraju/salesboard/internal/store/storetest"
	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_CreatesDefaultTenantAndReplacesData(t *testing.T) {
	s := storetest.NewSQLite(t)
	inv := &recordingInvalidator{}
	sd := ingest.NewSeeder(s, ingest.DefaultAliases(), ingest.WithInvalidator(inv))
	ctx := context.Background()

	res, err := sd.Seed(ctx, "seed.csv", []byte("Invoice,Branch,Total\nx,A,1\ny,B,2\nz,C,3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.True(t, res.Tenant.IsDefault)
	assert.Equal(t, ingest.DefaultTenantName, res.Tenant.Name)
	assert.Equal(t, models.BuiltInPartition, res.Tenant.Partition)

	res, err = sd.Seed(ctx, "seed.csv", []byte("Branch,Total\nD,4\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	def, err := s.GetDefaultTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, def.RecordCount)

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)

	sales, err := s.ScanSales(ctx, models.BuiltInPartition, models.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, int64(1), sales[0].SaleID)
	assert.Equal(t, "D", sales[0].Branch)

	assert.Equal(t, []models.TenantRef{models.BuiltIn(), models.BuiltIn()}, inv.refs)
}

func TestSeedFile(t *testing.T) {
	s := storetest.NewSQLite(t)
	sd := ingest.NewSeeder(s, ingest.DefaultAliases())

	path := filepath.Join(t.TempDir(), "supermarket_sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("Branch,Total\nA,1\nB,2\n"), 0o600))

	res, err := sd.SeedFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	_, err = sd.SeedFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
