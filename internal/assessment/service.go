// Package assessment stores the per body part clinical assessment of a
// patient and merges it with notes written before body parts had their
// own column.
package assessment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

// ServiceInterface defines the contract for assessment business logic
type ServiceInterface interface {
	Save(ctx context.Context, tn *tenant.Tenant, patientID string, entries map[string]string) (*SaveResult, error)
	Fetch(ctx context.Context, tn *tenant.Tenant, patientID string) (map[string]string, error)
}

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	log       zerolog.Logger
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, log zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, metrics: metrics, log: log}
}

// Save stores non-blank entries and removes the notes of blank ones.
// Unknown body part keys reject the whole request.
func (s *Service) Save(ctx context.Context, tn *tenant.Tenant, patientID string, entries map[string]string) (result *SaveResult, err error) {
	defer func() { s.metrics.RecordAssessmentOperation(ctx, "save", telemetry.Outcome(err)) }()

	writes, clears, err := plan(entries)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Save(ctx, tn.SchemaName, patientID, writes, clears)
	if err != nil {
		return nil, err
	}

	result = &SaveResult{Created: created, Written: []string{}, Cleared: []string{}}
	for _, w := range writes {
		key, _ := clinical.KeyForLabel(w.BodyPart)
		result.Written = append(result.Written, key)
	}
	for _, label := range clears {
		key, _ := clinical.KeyForLabel(label)
		result.Cleared = append(result.Cleared, key)
	}

	event := messaging.AssessmentSavedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventAssessmentSaved, tn.ID),
		Data: messaging.AssessmentSavedData{
			PatientID: patientID,
			Written:   result.Written,
			Cleared:   result.Cleared,
		},
	}
	messaging.PublishAsync(s.publisher, s.log, messaging.EventAssessmentSaved, event)

	s.log.Debug().
		Str("tenant_id", tn.ID).
		Str("patient_id", patientID).
		Int("written", len(result.Written)).
		Int("cleared", len(result.Cleared)).
		Msg("assessment saved")
	return result, nil
}

// Fetch returns the patient's assessment keyed by body part.
func (s *Service) Fetch(ctx context.Context, tn *tenant.Tenant, patientID string) (out map[string]string, err error) {
	defer func() { s.metrics.RecordAssessmentOperation(ctx, "fetch", telemetry.Outcome(err)) }()

	notes, err := s.repo.ListNotes(ctx, tn.SchemaName, patientID)
	if err != nil {
		return nil, err
	}
	return Merge(notes), nil
}
