package auth

import "errors"

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

// Validate checks that tokens can be verified with this configuration.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("AUTH_ISSUER is required")
	}
	if c.JWKSURL == "" {
		return errors.New("AUTH_JWKS_URL is required")
	}
	return nil
}
