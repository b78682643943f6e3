package assessment

import "github.com/WailSalutem-Health-Care/emr-service/internal/apperr"

var ErrPatientNotFound = apperr.New(apperr.NotFound, "patient not found")
