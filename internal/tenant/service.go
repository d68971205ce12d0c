// Package tenant manages the company registry exposed by the API.
package tenant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

var ErrBuiltInTenant = errors.New("the default company cannot be deleted")

// Invalidator drops cached analytics made stale by writes to a tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, ref models.TenantRef)
}

type Service struct {
	store       store.Store
	invalidator Invalidator
}

func NewService(s store.Store, inv Invalidator) *Service {
	return &Service{store: s, invalidator: inv}
}

// List returns the built-in tenant first, then uploads newest first.
func (s *Service) List(ctx context.Context) ([]*models.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Delete removes an uploaded tenant together with all of its sales.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	if t.IsDefault || t.Partition == models.BuiltInPartition {
		return ErrBuiltInTenant
	}

	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, t.Ref())
	}
	slog.Info("tenant deleted", "tenant_id", id, "partition", t.Partition)
	return nil
}
