package patient

import "context"

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	CreatePatient(ctx context.Context, schemaName string, req CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context, schemaName string, limit, offset int, search string) ([]Patient, int, error)
	GetPatient(ctx context.Context, schemaName, id string) (*Patient, error)
	GetByMRN(ctx context.Context, schemaName, mrn string) (*Patient, error)
	UpdatePatient(ctx context.Context, schemaName, id string, req UpdatePatientRequest) (*Patient, error)
	DeletePatient(ctx context.Context, schemaName, id string) (string, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
