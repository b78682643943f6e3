// Package patient manages the demographic and clinical record of the
// patients of one tenant.
package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

// ContentTypeJSONPatch selects RFC 6902 patches. Any other content type is
// applied as an RFC 7386 merge patch.
const ContentTypeJSONPatch = "application/json-patch+json"

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) CreatePatient(ctx context.Context, tn *tenant.Tenant, req CreatePatientRequest) (p *Patient, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "create", telemetry.Outcome(err)) }()

	if err := validateCreate(&req, s.now()); err != nil {
		return nil, err
	}

	p, err = s.repo.CreatePatient(ctx, tn.SchemaName, req)
	if err != nil {
		return nil, err
	}

	s.publish(tn, messaging.EventPatientCreated, p.ID, p.MRN)
	s.log.Info().Str("tenant_id", tn.ID).Str("patient_id", p.ID).Msg("patient created")
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (resp *PaginatedPatientListResponse, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "list", telemetry.Outcome(err)) }()

	params.Validate()

	patients, total, err := s.repo.ListPatients(ctx, tn.SchemaName, params.Limit, params.CalculateOffset(), params.Search)
	if err != nil {
		return nil, err
	}

	return &PaginatedPatientListResponse{
		Success:    true,
		Patients:   patients,
		Pagination: params.CalculateMeta(total),
	}, nil
}

func (s *Service) GetPatient(ctx context.Context, tn *tenant.Tenant, id string) (p *Patient, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "get", telemetry.Outcome(err)) }()
	return s.repo.GetPatient(ctx, tn.SchemaName, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, tn *tenant.Tenant, mrn string) (p *Patient, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "get_by_mrn", telemetry.Outcome(err)) }()
	return s.repo.GetByMRN(ctx, tn.SchemaName, strings.TrimSpace(mrn))
}

func (s *Service) UpdatePatient(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (p *Patient, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "update", telemetry.Outcome(err)) }()
	return s.update(ctx, tn, id, req)
}

func (s *Service) update(ctx context.Context, tn *tenant.Tenant, id string, req UpdatePatientRequest) (*Patient, error) {
	if err := validateUpdate(&req, s.now()); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdatePatient(ctx, tn.SchemaName, id, req)
	if err != nil {
		return nil, err
	}

	s.publish(tn, messaging.EventPatientUpdated, p.ID, p.MRN)
	return p, nil
}

// PatchPatient applies patch to the stored patient document, re-validates the
// result and stores every editable field.
func (s *Service) PatchPatient(ctx context.Context, tn *tenant.Tenant, id string, patch []byte, contentType string) (p *Patient, err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "patch", telemetry.Outcome(err)) }()

	current, err := s.repo.GetPatient(ctx, tn.SchemaName, id)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(documentOf(current))
	if err != nil {
		return nil, fmt.Errorf("failed to encode patient: %w", err)
	}

	patched, err := applyPatch(original, patch, contentType)
	if err != nil {
		return nil, err
	}

	var doc document
	dec := json.NewDecoder(bytes.NewReader(patched))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, apperr.Validationf("patched patient is invalid: %v", err)
	}

	return s.update(ctx, tn, id, doc.update())
}

func applyPatch(original, patch []byte, contentType string) ([]byte, error) {
	if strings.HasPrefix(strings.ToLower(contentType), ContentTypeJSONPatch) {
		ops, err := jsonpatch.DecodePatch(patch)
		if err != nil {
			return nil, apperr.Validationf("invalid JSON patch: %v", err)
		}
		out, err := ops.Apply(original)
		if err != nil {
			return nil, apperr.Validationf("failed to apply JSON patch: %v", err)
		}
		return out, nil
	}

	out, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, apperr.Validationf("invalid merge patch: %v", err)
	}
	return out, nil
}

func (s *Service) DeletePatient(ctx context.Context, tn *tenant.Tenant, id string) (err error) {
	defer func() { s.metrics.RecordPatientOperation(ctx, "delete", telemetry.Outcome(err)) }()

	mrn, err := s.repo.DeletePatient(ctx, tn.SchemaName, id)
	if err != nil {
		return err
	}

	s.publish(tn, messaging.EventPatientDeleted, id, mrn)
	s.log.Info().Str("tenant_id", tn.ID).Str("patient_id", id).Msg("patient deleted")
	return nil
}

// PatientRecordJSON returns the stored patient as JSON for record search.
func (s *Service) PatientRecordJSON(ctx context.Context, schemaName, patientID string) ([]byte, error) {
	p, err := s.repo.GetPatient(ctx, schemaName, patientID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func (s *Service) publish(tn *tenant.Tenant, eventType, patientID, mrn string) {
	event := messaging.PatientEvent{
		BaseEvent: messaging.NewBaseEvent(eventType, tn.ID),
		Data: messaging.PatientEventData{
			PatientID: patientID,
			MRN:       mrn,
			ChangedAt: s.now().UTC(),
		},
	}
	messaging.PublishAsync(s.publisher, s.log, eventType, event)
}
