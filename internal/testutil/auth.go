package testutil

import (
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
)

const (
	TestIssuer = "https://test-keycloak.com/realms/test"
	TestKeyID  = "test-key-id"
)

// staticKeys serves a single public key under TestKeyID.
type staticKeys struct {
	key *rsa.PublicKey
}

func (s staticKeys) Get(kid string) (*rsa.PublicKey, error) {
	if kid != TestKeyID {
		return nil, errors.New("unknown kid")
	}
	return s.key, nil
}

// CreateTestVerifier creates a verifier configured for E2E testing.
// It returns the verifier and the private key to sign test tokens.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, staticKeys{key: publicKey})
	return verifier, privateKey
}
