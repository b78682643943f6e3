package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
)

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a signed token carrying the user's roles and,
// when tenantID is set, the tenantId claim.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, tenantID string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}
	if tenantID != "" {
		claims["tenantId"] = tenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

// GenerateSuperAdminToken creates a SUPER_ADMIN token for testing
func GenerateSuperAdminToken(t *testing.T, privateKey *rsa.PrivateKey) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "admin-123", "", []string{auth.RoleSuperAdmin})
}

// GenerateTenantAdminToken creates a TENANT_ADMIN token for testing
func GenerateTenantAdminToken(t *testing.T, privateKey *rsa.PrivateKey, tenantID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "tenantadmin-123", tenantID, []string{auth.RoleTenantAdmin})
}

// GenerateClinicianToken creates a CLINICIAN token for testing
func GenerateClinicianToken(t *testing.T, privateKey *rsa.PrivateKey, tenantID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "clinician-123", tenantID, []string{auth.RoleClinician})
}

// GenerateNurseToken creates a NURSE token for testing
func GenerateNurseToken(t *testing.T, privateKey *rsa.PrivateKey, tenantID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "nurse-123", tenantID, []string{auth.RoleNurse})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
