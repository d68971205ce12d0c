package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/metrics"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

var (
	ErrEmptyUpload      = errors.New("CSV file is empty or invalid")
	ErrUnreadableUpload = errors.New("upload could not be read")
)

// BatchSize is the number of records written per bulk insert.
const BatchSize = 100

// Invalidator drops cached analytics made stale by writes to a tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, ref models.TenantRef)
}

// UploadRequest is one file submitted for import.
type UploadRequest struct {
	Filename    string
	Data        []byte
	CompanyName string
}

// UploadResult describes a finished import.
type UploadResult struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Tenant   *models.Tenant `json:"company"`
	Headers  []string       `json:"csv_headers"`
	Mapping  []FieldMapping `json:"field_mapping"`
	Message  string         `json:"message"`
}

// Pipeline imports uploads into new tenants.
type Pipeline struct {
	store       store.Store
	aliases     *AliasTable
	matcher     Matcher
	invalidator Invalidator
	metrics     *metrics.Metrics
	now         func() time.Time
}

type PipelineOption func(*Pipeline)

func WithMatcher(m Matcher) PipelineOption {
	return func(p *Pipeline) {
		p.matcher = m
	}
}

func WithInvalidator(inv Invalidator) PipelineOption {
	return func(p *Pipeline) {
		p.invalidator = inv
	}
}

func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(s store.Store, aliases *AliasTable, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:   s,
		aliases: aliases,
		matcher: FuzzyMatcher{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload tokenizes req, creates a tenant for it and persists every row.
// Nothing is created when the file holds no data rows. A storage failure
// after the tenant exists leaves the tenant and any rows already written.
func (p *Pipeline) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	start := p.now()

	res, err := p.upload(ctx, req)
	if err != nil {
		p.metrics.RecordUploadError()
		return nil, err
	}
	p.metrics.RecordUpload(res.Imported, res.Skipped, time.Since(start).Seconds())
	return res, nil
}

func (p *Pipeline) upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	table, err := ReadTable(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyUpload
	}

	now := p.now()
	name := req.CompanyName
	if name == "" {
		name = "Uploaded Company - " + now.Format("Jan 2, 2006")
	}
	tenant := &models.Tenant{
		Name:        name,
		CSVHeaders:  table.Headers,
		RecordCount: len(table.Rows),
		Partition:   fmt.Sprintf("sales_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
	}
	if err := p.store.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	slog.Info("tenant created", "tenant_id", tenant.ID, "partition", tenant.Partition, "rows", len(table.Rows))

	nextID, err := p.store.MaxSaleID(ctx, tenant.Partition)
	if err != nil {
		return nil, err
	}
	nextID++

	builder := NewBuilder(p.aliases, p.matcher, table.Headers)
	sales := make([]*models.Sale, 0, len(table.Rows))
	var mapping []FieldMapping
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
		return nil, err
	}

	if err := p.store.UpdateTenantRecordCount(ctx, tenant.ID, saved); err != nil {
		return nil, fmt.Errorf("update record count: %w", err)
	}
	tenant.RecordCount = saved
	if p.invalidator != nil {
		p.invalidator.Invalidate(ctx, tenant.Ref())
	}

	skipped := len(sales) - saved
	slog.Info("upload imported", "tenant_id", tenant.ID, "partition", tenant.Partition,
		"imported", saved, "skipped", skipped)

	return &UploadResult{
		Imported: saved,
		Skipped:  skipped,
		Tenant:   tenant,
		Headers:  table.Headers,
		Mapping:  mapping,
		Message:  fmt.Sprintf("CSV uploaded successfully. %d records imported.", saved),
	}, nil
}

// persist writes sales in sequential batches. A batch rejected for a
// duplicate sale_id is retried one record at a time, skipping collisions.
// It returns how many records were written.
func persist(ctx context.Context, s store.Store, partition string, sales []*models.Sale) (int, error) {
	saved := 0
	for start := 0; start < len(sales); start += BatchSize {
		end := min(start+BatchSize, len(sales))
		batch := sales[start:end]

		err := s.InsertSales(ctx, partition, batch)
		if err == nil {
			saved += len(batch)
			continue
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return saved, fmt.Errorf("insert batch at row %d: %w", start, err)
		}

		for _, sale := range batch {
			err := s.InsertSale(ctx, partition, sale)
			if errors.Is(err, store.ErrDuplicateKey) {
				slog.Debug("skipping duplicate sale", "partition", partition, "sale_id", sale.SaleID)
				continue
			}
			if err != nil {
				return saved, fmt.Errorf("insert sale %d: %w", sale.SaleID, err)
			}
			saved++
		}
	}
	return saved, nil
}
