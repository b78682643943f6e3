package patient

import "github.com/WailSalutem-Health-Care/emr-service/internal/apperr"

var (
	ErrPatientNotFound  = apperr.New(apperr.NotFound, "patient not found")
	ErrDuplicateMRN     = apperr.New(apperr.Conflict, "a patient with this MRN already exists")
	ErrNoFieldsToUpdate = apperr.New(apperr.Validation, "no fields to update")
)
