package assessment

import "context"

// RepositoryInterface defines the contract for assessment note storage
type RepositoryInterface interface {
	Save(ctx context.Context, schema, patientID string, writes []Write, clears []string) (int, error)
	ListNotes(ctx context.Context, schema, patientID string) ([]Note, error)
}

var _ RepositoryInterface = (*Repository)(nil)
