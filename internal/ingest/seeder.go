package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// DefaultTenantName is the name given to the built-in tenant on first seed.
const DefaultTenantName = "Supermarket Sales Company"

// Seeder replaces the built-in dataset with the contents of a file.
type Seeder struct {
	p *Pipeline
}

func NewSeeder(s store.Store, aliases *AliasTable, opts ...PipelineOption) *Seeder {
	return &Seeder{p: NewPipeline(s, aliases, opts...)}
}

// SeedFile reads path and seeds the built-in partition from it.
func (sd *Seeder) SeedFile(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return sd.Seed(ctx, filepath.Base(path), data)
}

// Seed purges the built-in partition and imports data into it, creating
// the built-in tenant if it does not exist yet.
func (sd *Seeder) Seed(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	start := time.Now()
	p := sd.p

	table, err := ReadTable(filename, data)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyUpload
	}

	tenant, err := p.store.GetDefaultTenant(ctx)
	if errors.Is(err, store.ErrNotFound) {
		tenant = &models.Tenant{
			Name:       DefaultTenantName,
			IsDefault:  true,
			CSVHeaders: table.Headers,
			Partition:  models.BuiltInPartition,
		}
		if err := p.store.CreateTenant(ctx, tenant); err != nil {
			return nil, fmt.Errorf("create default tenant: %w", err)
		}
		slog.Info("default tenant created", "tenant_id", tenant.ID)
	} else if err != nil {
		return nil, fmt.Errorf("get default tenant: %w", err)
	}

	if err := p.store.PurgeSales(ctx, tenant.Partition); err != nil {
		return nil, fmt.Errorf("purge %s: %w", tenant.Partition, err)
	}

	builder := NewBuilder(p.aliases, p.matcher, table.Headers)
	sales := make([]*models.Sale, 0, len(table.Rows))
	var mapping []FieldMapping
	nextID := int64(1)
	for i, row := range table.Rows {
		var built Built
		built, nextID = builder.Build(row, nextID)
		if i == 0 {
			mapping = built.Mapping
		}
		sales = append(sales, built.Sale)
	}

	saved, err := persist(ctx, p.store, tenant.Partition, sales)
	if err != nil {
		p.metrics.RecordUploadError()
		return nil, err
	}
	if err := p.store.UpdateTenantRecordCount(ctx, tenant.ID, saved); err != nil {
		return nil, fmt.Errorf("update record count: %w", err)
	}
	tenant.RecordCount = saved
	if p.invalidator != nil {
		p.invalidator.Invalidate(ctx, models.BuiltIn())
	}

	skipped := len(sales) - saved
	p.metrics.RecordUpload(saved, skipped, time.Since(start).Seconds())
	slog.Info("seed imported", "partition", tenant.Partition, "imported", saved, "skipped", skipped)

	return &UploadResult{
		Imported: saved,
		Skipped:  skipped,
		Tenant:   tenant,
		Headers:  table.Headers,
		Mapping:  mapping,
		Message:  fmt.Sprintf("Seeded %d records.", saved),
	}, nil
}
