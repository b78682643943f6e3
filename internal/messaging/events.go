package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	// Tenant events
	EventTenantProvisioned = "tenant.provisioned"
	EventTenantDeleted     = "tenant.deleted"

	// Patient events
	EventPatientCreated = "patient.created"
	EventPatientUpdated = "patient.updated"
	EventPatientDeleted = "patient.deleted"

	// Clinical events
	EventAssessmentSaved     = "assessment.saved"
	EventExtractionCompleted = "extraction.completed"
)

const ServiceName = "emr-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
	TenantID    string    `json:"tenant_id,omitempty"`
}

type TenantProvisionedEvent struct {
	BaseEvent
	Data TenantProvisionedData `json:"data"`
}

type TenantProvisionedData struct {
	Name       string    `json:"name"`
	Subdomain  string    `json:"subdomain"`
	SchemaName string    `json:"schema_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type TenantDeletedEvent struct {
	BaseEvent
	Data TenantDeletedData `json:"data"`
}

type TenantDeletedData struct {
	Subdomain  string    `json:"subdomain"`
	SchemaName string    `json:"schema_name"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// PatientEvent is shared by the create, update and delete routing keys.
type PatientEvent struct {
	BaseEvent
	Data PatientEventData `json:"data"`
}

type PatientEventData struct {
	PatientID string    `json:"patient_id"`
	MRN       string    `json:"mrn"`
	ChangedAt time.Time `json:"changed_at"`
}

type AssessmentSavedEvent struct {
	BaseEvent
	Data AssessmentSavedData `json:"data"`
}

type AssessmentSavedData struct {
	PatientID string   `json:"patient_id"`
	Written   []string `json:"written"`
	Cleared   []string `json:"cleared"`
}

// ExtractionCompletedEvent never carries clinical text, only the outcome.
type ExtractionCompletedEvent struct {
	BaseEvent
	Data ExtractionCompletedData `json:"data"`
}

type ExtractionCompletedData struct {
	Kind       string `json:"kind"`
	Outcome    string `json:"outcome"`
	Cached     bool   `json:"cached"`
	DurationMS int64  `json:"duration_ms"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
		TenantID:    tenantID,
	}
}
