package patient

import (
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
)

// CreatePatientRequest represents the request to create a new patient
type CreatePatientRequest struct {
	MRN                   string           `json:"mrn"`
	FirstName             string           `json:"first_name"`
	LastName              string           `json:"last_name"`
	DateOfBirth           string           `json:"date_of_birth"` // Format: YYYY-MM-DD
	Gender                string           `json:"gender"`
	Phone                 string           `json:"phone"`
	Email                 string           `json:"email"`
	Address               string           `json:"address"`
	EmergencyContactName  string           `json:"emergency_contact_name"`
	EmergencyContactPhone string           `json:"emergency_contact_phone"`
	Allergies             string           `json:"allergies"`
	DNR                   bool             `json:"dnr"`
	ClinicalRecord        *clinical.Record `json:"clinical_record,omitempty"`
}

// UpdatePatientRequest represents the request to update a patient. Nil
// fields are left unchanged.
type UpdatePatientRequest struct {
	MRN                   *string          `json:"mrn,omitempty"`
	FirstName             *string          `json:"first_name,omitempty"`
	LastName              *string          `json:"last_name,omitempty"`
	DateOfBirth           *string          `json:"date_of_birth,omitempty"`
	Gender                *string          `json:"gender,omitempty"`
	Phone                 *string          `json:"phone,omitempty"`
	Email                 *string          `json:"email,omitempty"`
	Address               *string          `json:"address,omitempty"`
	EmergencyContactName  *string          `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string          `json:"emergency_contact_phone,omitempty"`
	Allergies             *string          `json:"allergies,omitempty"`
	DNR                   *bool            `json:"dnr,omitempty"`
	IsActive              *bool            `json:"is_active,omitempty"`
	ClinicalRecord        *clinical.Record `json:"clinical_record,omitempty"`
}

// Patient represents the patient data returned to clients
type Patient struct {
	ID                    string          `json:"id"`
	MRN                   string          `json:"mrn"`
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	DateOfBirth           *string         `json:"date_of_birth,omitempty"`
	Gender                string          `json:"gender"`
	Phone                 string          `json:"phone"`
	Email                 string          `json:"email"`
	Address               string          `json:"address"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	Allergies             string          `json:"allergies"`
	DNR                   bool            `json:"dnr"`
	ClinicalRecord        clinical.Record `json:"clinical_record"`
	IsActive              bool            `json:"is_active"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// document is the editable part of a patient, the target of merge patches.
type document struct {
	MRN                   string          `json:"mrn"`
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	DateOfBirth           string          `json:"date_of_birth"`
	Gender                string          `json:"gender"`
	Phone                 string          `json:"phone"`
	Email                 string          `json:"email"`
	Address               string          `json:"address"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	Allergies             string          `json:"allergies"`
	DNR                   bool            `json:"dnr"`
	IsActive              bool            `json:"is_active"`
	ClinicalRecord        clinical.Record `json:"clinical_record"`
}

func documentOf(p *Patient) document {
	d := document{
		MRN:                   p.MRN,
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Gender:                p.Gender,
		Phone:                 p.Phone,
		Email:                 p.Email,
		Address:               p.Address,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		Allergies:             p.Allergies,
		DNR:                   p.DNR,
		IsActive:              p.IsActive,
		ClinicalRecord:        p.ClinicalRecord,
	}
	if p.DateOfBirth != nil {
		d.DateOfBirth = *p.DateOfBirth
	}
	return d
}

// update sets every field, so the stored row matches the document.
func (d document) update() UpdatePatientRequest {
	record := d.ClinicalRecord
	return UpdatePatientRequest{
		MRN:                   &d.MRN,
		FirstName:             &d.FirstName,
		LastName:              &d.LastName,
		DateOfBirth:           &d.DateOfBirth,
		Gender:                &d.Gender,
		Phone:                 &d.Phone,
		Email:                 &d.Email,
		Address:               &d.Address,
		EmergencyContactName:  &d.EmergencyContactName,
		EmergencyContactPhone: &d.EmergencyContactPhone,
		Allergies:             &d.Allergies,
		DNR:                   &d.DNR,
		IsActive:              &d.IsActive,
		ClinicalRecord:        &record,
	}
}

// PaginatedPatientListResponse is the paginated patient listing
type PaginatedPatientListResponse struct {
	Success    bool            `json:"success"`
	Patients   []Patient       `json:"patients"`
	Pagination pagination.Meta `json:"pagination"`
}
