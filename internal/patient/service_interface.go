package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

// ServiceInterface defines the contract for patient business logic
type ServiceInterface interface {
	CreatePatient(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (*PaginatedPatientListResponse, error)
	GetPatient(ctx context.Context, tn *tenant.Tenant, id string) (*Patient, error)
	GetPatientByMRN(ctx context.Context, tn *tenant.Tenant, mrn string) (*Patient, error)
	UpdatePatient(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (*Patient, error)
	PatchPatient(ctx context.Context, tn *tenant.Tenant, id string, patch []byte, contentType string) (*Patient, error)
	DeletePatient(ctx context.Context, tn *tenant.Tenant, id string) error
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
