package patient

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
)

const (
	dateLayout   = "2006-01-02"
	maxMRNLength = 64
)

func validateMRN(mrn string) error {
	if mrn == "" {
		return apperr.Validationf("mrn is required")
	}
	if utf8.RuneCountInString(mrn) > maxMRNLength {
		return apperr.Validationf("mrn must be at most %d characters", maxMRNLength)
	}
	if strings.ContainsAny(mrn, " \t\n/") {
		return apperr.Validationf("mrn must not contain whitespace or slashes")
	}
	return nil
}

func validateDateOfBirth(dob string, now time.Time) error {
	if dob == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, dob)
	if err != nil {
		return apperr.Validationf("date_of_birth must be formatted as YYYY-MM-DD")
	}
	if t.After(now) {
		return apperr.Validationf("date_of_birth cannot be in the future")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validationf("email is not a valid email address")
	}
	return nil
}

func validateCreate(req *CreatePatientRequest, now time.Time) error {
	req.MRN = strings.TrimSpace(req.MRN)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	if req.FirstName == "" {
		return apperr.Validationf("first name is required")
	}
	if req.LastName == "" {
		return apperr.Validationf("last name is required")
	}
	if err := validateMRN(req.MRN); err != nil {
		return err
	}
	if err := validateDateOfBirth(req.DateOfBirth, now); err != nil {
		return err
	}
	return validateEmail(req.Email)
}

func validateUpdate(req *UpdatePatientRequest, now time.Time) error {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(req.MRN)
	trim(req.FirstName)
	trim(req.LastName)
	trim(req.Email)

	if req.FirstName != nil && *req.FirstName == "" {
		return apperr.Validationf("first name cannot be empty")
	}
	if req.LastName != nil && *req.LastName == "" {
		return apperr.Validationf("last name cannot be empty")
	}
	if req.MRN != nil {
		if err := validateMRN(*req.MRN); err != nil {
			return err
		}
	}
	if req.DateOfBirth != nil {
		if err := validateDateOfBirth(*req.DateOfBirth, now); err != nil {
			return err
		}
	}
	if req.Email != nil {
		return validateEmail(*req.Email)
	}
	return nil
}
