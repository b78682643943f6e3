package tenant

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Reserved labels route to the platform itself, never to a tenant.
var reservedSubdomains = map[string]bool{
	"www":   true,
	"api":   true,
	"admin": true,
}

// NormalizeSubdomain lowercases and trims a subdomain.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateSubdomain checks that s is a usable DNS label.
func ValidateSubdomain(s string) error {
	if s == "" {
		return apperr.Validationf("subdomain is required")
	}
	if !subdomainPattern.MatchString(s) {
		return apperr.Validationf("subdomain %q must be a lowercase DNS label of letters, digits and hyphens", s)
	}
	if reservedSubdomains[s] {
		return apperr.Validationf("subdomain %q is reserved", s)
	}
	return nil
}

func validateCreate(req *CreateTenantRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Subdomain = NormalizeSubdomain(req.Subdomain)

	if req.Name == "" {
		return apperr.Validationf("tenant name is required")
	}
	if err := ValidateSubdomain(req.Subdomain); err != nil {
		return err
	}
	if req.ContactEmail != "" {
		if _, err := mail.ParseAddress(req.ContactEmail); err != nil {
			return apperr.Validationf("contact_email is not a valid email address")
		}
	}
	return nil
}

func validateUpdate(req UpdateTenantRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return apperr.Validationf("tenant name cannot be empty")
	}
	if req.Status != nil && *req.Status != StatusActive && *req.Status != StatusInactive {
		return apperr.Validationf("status must be %q or %q", StatusActive, StatusInactive)
	}
	if req.ContactEmail != nil && *req.ContactEmail != "" {
		if _, err := mail.ParseAddress(*req.ContactEmail); err != nil {
			return apperr.Validationf("contact_email is not a valid email address")
		}
	}
	return nil
}

// SchemaNameFor derives the tenant schema name, e.g.
// "tenant_st_marys_1a2b3c4d" for subdomain "st-marys".
func SchemaNameFor(subdomain string, id uuid.UUID) string {
	label := strings.ReplaceAll(subdomain, "-", "_")
	if len(label) > 40 {
		label = label[:40]
	}
	return fmt.Sprintf("tenant_%s_%s", label, strings.ReplaceAll(id.String(), "-", "")[:8])
}
