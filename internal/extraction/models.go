package extraction

import "github.com/WailSalutem-Health-Care/emr-service/internal/clinical"

// Kinds of model calls, used for cache keys, metrics and events.
const (
	KindExtract    = "extract"
	KindCategorize = "categorize"
	KindSearch     = "search"
	KindIDCard     = "id_card"
)

// ExtractRequest is the body of POST /ai/extract.
type ExtractRequest struct {
	Notes string `json:"notes"`
}

// CategorizeRequest is the body of POST /ai/categorize.
type CategorizeRequest struct {
	Text string `json:"text"`
}

// SearchRequest is the body of POST /patients/{id}/ai/search.
type SearchRequest struct {
	Query string `json:"query"`
}

type Demographics struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	Gender      string `json:"gender,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	MRN         string `json:"mrn,omitempty"`
}

// AssessmentEntry is a body-part observation found in the note.
type AssessmentEntry struct {
	BodyPart string `json:"bodyPart"`
	Note     string `json:"note"`
}

// MedicalExtractionResult is the validated output of a note extraction.
type MedicalExtractionResult struct {
	Demographics *Demographics `json:"demographics,omitempty"`
	clinical.Record
	Allergies   string                `json:"allergies,omitempty"`
	DNR         *bool                 `json:"dnr,omitempty"`
	Assessment  []AssessmentEntry     `json:"assessment,omitempty"`
	Confidence  *float64              `json:"confidence,omitempty"`
	Corrections []clinical.Correction `json:"corrections,omitempty"`
}

type Category struct {
	Name       string   `json:"name"`
	Items      []string `json:"items"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// CategorizationResult groups clinical text into categories.
type CategorizationResult struct {
	Categories  []Category `json:"categories"`
	Summary     string     `json:"summary"`
	KeyFindings []string   `json:"keyFindings"`
}

// SearchResult answers a question about one patient's record.
type SearchResult struct {
	Answer     string   `json:"answer"`
	Citations  []string `json:"citations"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// IDCardResult holds the fields read from an identity card image.
type IDCardResult struct {
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	DateOfBirth string   `json:"dateOfBirth,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	IDNumber    string   `json:"idNumber,omitempty"`
	Address     string   `json:"address,omitempty"`
	ExpiryDate  string   `json:"expiryDate,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	ImageKey    string   `json:"imageKey,omitempty"`
}
