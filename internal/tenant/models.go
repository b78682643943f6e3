package tenant

import (
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// CreateTenantRequest represents the request to provision a new tenant
type CreateTenantRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

// UpdateTenantRequest represents the request to update a tenant
type UpdateTenantRequest struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// Tenant is a hospital and the schema that holds its data
type Tenant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Subdomain    string    `json:"subdomain"`
	SchemaName   string    `json:"schema_name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows a tenant listing
type ListFilter struct {
	Search string
	Status string
}

// PaginatedListResponse is the paginated tenant listing
type PaginatedListResponse struct {
	Success    bool            `json:"success"`
	Tenants    []Tenant        `json:"tenants"`
	Pagination pagination.Meta `json:"pagination"`
}
