package tenant

import "github.com/WailSalutem-Health-Care/emr-service/internal/apperr"

var (
	ErrTenantNotFound     = apperr.New(apperr.NotFound, "tenant not found")
	ErrDuplicateSubdomain = apperr.New(apperr.Conflict, "a tenant with this subdomain already exists")
	ErrNoFieldsToUpdate   = apperr.New(apperr.Validation, "no fields to update")
)
