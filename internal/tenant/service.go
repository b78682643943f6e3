package tenant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
)

// LookupTTL bounds how long a subdomain resolution is served from cache.
const LookupTTL = 5 * time.Minute

// CacheKey is the cache entry for a subdomain lookup.
func CacheKey(subdomain string) string {
	return "tenant:subdomain:" + subdomain
}

type Service struct {
	repo      RepositoryInterface
	cache     cache.Cache
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	log       zerolog.Logger
}

func NewService(repo RepositoryInterface, c cache.Cache, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, log zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, cache: c, publisher: publisher, metrics: metrics, log: log}
}

func (s *Service) CreateTenant(ctx context.Context, req CreateTenantRequest) (t *Tenant, err error) {
	defer func() { s.metrics.RecordTenantOperation(ctx, "create", telemetry.Outcome(err)) }()

	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	t, err = s.repo.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}

	event := messaging.TenantProvisionedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventTenantProvisioned, t.ID),
		Data: messaging.TenantProvisionedData{
			Name:       t.Name,
			Subdomain:  t.Subdomain,
			SchemaName: t.SchemaName,
			CreatedAt:  t.CreatedAt,
		},
	}
	messaging.PublishAsync(s.publisher, s.log, messaging.EventTenantProvisioned, event)

	s.log.Info().Str("tenant_id", t.ID).Str("subdomain", t.Subdomain).Msg("tenant provisioned")
	return t, nil
}

// ListTenants retrieves tenants with pagination
func (s *Service) ListTenants(ctx context.Context, params pagination.Params) (*PaginatedListResponse, error) {
	params.Validate()

	tenants, total, err := s.repo.ListTenants(ctx, params.Limit, params.CalculateOffset(), ListFilter{
		Search: params.Search,
		Status: params.Status,
	})
	if err != nil {
		return nil, err
	}

	return &PaginatedListResponse{
		Success:    true,
		Tenants:    tenants,
		Pagination: params.CalculateMeta(total),
	}, nil
}

func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetTenant(ctx, id)
}

func (s *Service) UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (t *Tenant, err error) {
	defer func() { s.metrics.RecordTenantOperation(ctx, "update", telemetry.Outcome(err)) }()

	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	t, err = s.repo.UpdateTenant(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.Subdomain)
	return t, nil
}

// DeleteTenant soft deletes the tenant and stops routing requests to it.
func (s *Service) DeleteTenant(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordTenantOperation(ctx, "delete", telemetry.Outcome(err)) }()

	t, err := s.repo.DeleteTenant(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, t.Subdomain)

	event := messaging.TenantDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventTenantDeleted, t.ID),
		Data: messaging.TenantDeletedData{
			Subdomain:  t.Subdomain,
			SchemaName: t.SchemaName,
			DeletedAt:  t.UpdatedAt,
		},
	}
	messaging.PublishAsync(s.publisher, s.log, messaging.EventTenantDeleted, event)

	s.log.Info().Str("tenant_id", t.ID).Str("subdomain", t.Subdomain).Msg("tenant deleted")
	return nil
}

// Resolve returns the active tenant for subdomain, consulting the cache
// first. Cache failures degrade to a database lookup.
func (s *Service) Resolve(ctx context.Context, subdomain string) (*Tenant, error) {
	key := CacheKey(subdomain)

	var cached Tenant
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("subdomain", subdomain).Msg("tenant cache read failed")
	}
	if hit {
		return &cached, nil
	}

	t, err := s.repo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, t, LookupTTL); err != nil {
		s.log.Warn().Err(err).Str("subdomain", subdomain).Msg("tenant cache write failed")
	}
	return t, nil
}

// ResolveFallback returns the oldest active tenant. It exists for local
// development only, where requests arrive without a tenant subdomain.
func (s *Service) ResolveFallback(ctx context.Context) (*Tenant, error) {
	return s.repo.FirstActive(ctx)
}

func (s *Service) invalidate(ctx context.Context, subdomain string) {
	if err := s.cache.Delete(ctx, CacheKey(subdomain)); err != nil {
		s.log.Warn().Err(err).Str("subdomain", subdomain).Msg("failed to invalidate tenant cache")
	}
}
