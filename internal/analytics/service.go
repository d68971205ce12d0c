package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/salesboard/internal/cache"
	"github.com/kiranshivaraju/salesboard/internal/metrics"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

const cacheType = "summary"

// Service serves summaries from the cache when possible. Cache failures are
// logged and otherwise ignored.
type Service struct {
	store   store.Store
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewService(s store.Store, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{store: s, cache: c, ttl: ttl, metrics: m}
}

// Summary returns totals and group breakdowns for sel. A single partition is
// grouped by the store; all partitions are loaded one after another and
// accumulated in memory.
func (s *Service) Summary(ctx context.Context, sel models.Selector) (*models.Summary, error) {
	key := cache.SummaryKey(sel.String())

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	var (
		sum *models.Summary
		err error
	)
	if sel.All {
		sum, err = s.summarizeAll(ctx)
	} else {
		sum, err = s.summarizeOne(ctx, sel.Ref)
	}
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sum); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			slog.Warn("summary cache write failed", "key", key, "error", err)
		}
	}
	return sum, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*models.Summary, bool) {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("summary cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		s.metrics.RecordCacheMiss(cacheType)
		return nil, false
	}

	var sum models.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		slog.Warn("summary cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	s.metrics.RecordCacheHit(cacheType)
	return &sum, true
}

func (s *Service) summarizeOne(ctx context.Context, ref models.TenantRef) (*models.Summary, error) {
	partition, err := store.PartitionFor(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountSales(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", partition, err)
	}
	revenue, err := s.store.TotalRevenue(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", partition, err)
	}

	sum := &models.Summary{TotalSales: count, TotalRevenue: revenue}
	for _, d := range models.Dimensions {
		groups, err := s.store.GroupSales(ctx, partition, d)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", partition, err)
		}
		SortGroups(groups)
		*sum.Groups(d) = groups
	}
	return sum, nil
}

func (s *Service) summarizeAll(ctx context.Context) (*models.Summary, error) {
	parts, err := store.ListPartitions(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("summarize all: %w", err)
	}

	acc := NewAccumulator()
	for _, p := range parts {
		sales, err := s.store.ScanSales(ctx, p.Name, models.SaleFilter{})
		if err != nil {
			return nil, fmt.Errorf("summarize all: %w", err)
		}
		for _, sale := range sales {
			acc.Add(sale)
		}
	}
	return acc.Summary(), nil
}

// Invalidate drops the cached summaries that writes to ref make stale: the
// ref's own and the all-partition one.
func (s *Service) Invalidate(ctx context.Context, ref models.TenantRef) {
	keys := []string{cache.SummaryKey(ref.String()), cache.SummaryKey(models.SelectorAll)}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("summary cache invalidation failed", "keys", keys, "error", err)
	}
}
