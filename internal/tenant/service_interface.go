package tenant

import (
	"context"

	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
)

// ServiceInterface defines the contract for tenant business logic
type ServiceInterface interface {
	CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error)
	ListTenants(ctx context.Context, params pagination.Params) (*PaginatedListResponse, error)
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (*Tenant, error)
	DeleteTenant(ctx context.Context, id string) error
}

// Lookup resolves request hosts to tenants.
type Lookup interface {
	Resolve(ctx context.Context, subdomain string) (*Tenant, error)
	ResolveFallback(ctx context.Context) (*Tenant, error)
}

// Ensure Service implements ServiceInterface
var (
	_ ServiceInterface = (*Service)(nil)
	_ Lookup           = (*Service)(nil)
)
