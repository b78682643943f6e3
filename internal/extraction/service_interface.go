package extraction

import "context"

// ServiceInterface defines the contract for AI-assisted features
type ServiceInterface interface {
	Extract(ctx context.Context, tenantID, notes string) (*MedicalExtractionResult, error)
	Categorize(ctx context.Context, tenantID, text string) (*CategorizationResult, error)
	Search(ctx context.Context, tenantID, query string, record []byte) (*SearchResult, error)
	ScanIDCard(ctx context.Context, tenantID string, image []byte, mimeType string) (*IDCardResult, error)
}

// RecordSource loads the JSON record of one patient for AI search.
type RecordSource interface {
	PatientRecordJSON(ctx context.Context, schemaName, patientID string) ([]byte, error)
}
