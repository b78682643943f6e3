package tenant

import "context"

// RepositoryInterface defines the contract for tenant data access
type RepositoryInterface interface {
	CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error)
	ListTenants(ctx context.Context, limit, offset int, filter ListFilter) ([]Tenant, int, error)
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	FirstActive(ctx context.Context) (*Tenant, error)
	UpdateTenant(ctx context.Context, id string, req UpdateTenantRequest) (*Tenant, error)
	DeleteTenant(ctx context.Context, id string) (*Tenant, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
