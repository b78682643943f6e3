package clinical

type Medication struct {
	Name      string `json:"name,omitempty"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`
	StartDate string `json:"startDate,omitempty"`
}

type SocialHistory struct {
	Smoking    string `json:"smoking,omitempty"`
	Alcohol    string `json:"alcohol,omitempty"`
	DrugUse    string `json:"drugUse,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Exercise   string `json:"exercise,omitempty"`
}

// PastCondition notes are prefixed with their capture time, see StampNote.
type PastCondition struct {
	Condition     string `json:"condition,omitempty"`
	DiagnosedDate string `json:"diagnosedDate,omitempty"`
	Status        string `json:"status,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type Immunization struct {
	Vaccine string `json:"vaccine,omitempty"`
	Date    string `json:"date,omitempty"`
}

type FamilyHistory struct {
	Relation  string `json:"relation,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Record is the structured clinical history of a patient. It is stored as
// JSON alongside the patient's demographics and is also the shape the model
// fills in when parsing free-text notes.
type Record struct {
	Vitals         *Vitals         `json:"vitals,omitempty"`
	Medications    []Medication    `json:"medications,omitempty"`
	SocialHistory  *SocialHistory  `json:"socialHistory,omitempty"`
	PastConditions []PastCondition `json:"pastConditions,omitempty"`
	Immunizations  []Immunization  `json:"immunizations,omitempty"`
	FamilyHistory  []FamilyHistory `json:"familyHistory,omitempty"`
	GeneralNotes   string          `json:"generalNotes,omitempty"`
	PreventiveCare string          `json:"preventiveCare,omitempty"`
}
