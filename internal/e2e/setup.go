//go:build integration

package e2e

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/assessment"
	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
	"github.com/WailSalutem-Health-Care/emr-service/internal/extraction"
	httpserver "github.com/WailSalutem-Health-Care/emr-service/internal/http"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/patient"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
	"github.com/WailSalutem-Health-Care/emr-service/internal/testutil"
)

const baseDomain = "emr.test"

// stubGenerator answers every prompt with a fixed model reply and keeps
// the prompts it was given.
type stubGenerator struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, nil
}

func (g *stubGenerator) SetReply(reply string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply = reply
}

func (g *stubGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Cache         *testutil.MemoryCache
	Generator     *stubGenerator
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest wires the real router against the test database. The model
// and the message broker are replaced with in-memory doubles.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	handle, sqlDB := testutil.SetupTestHandle(t)
	log := logging.Nop()

	mockPublisher := testutil.NewMockPublisher()
	memCache := testutil.NewMemoryCache()
	gen := &stubGenerator{reply: `{}`}

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	tenantService := tenant.NewService(tenant.NewRepository(handle, log), memCache, mockPublisher, nil, log)
	patientService := patient.NewService(patient.NewRepository(handle, log), mockPublisher, nil, log)

	router := httpserver.SetupRouter(httpserver.Dependencies{
		Tenants:     tenantService,
		Resolver:    tenant.NewResolver(tenantService, config.Tenancy{BaseDomain: baseDomain}, log),
		Patients:    patientService,
		Assessments: assessment.NewService(assessment.NewRepository(handle, log), mockPublisher, nil, log),
		Extraction:  extraction.NewService(gen, memCache, nil, mockPublisher, nil, extraction.Config{Model: "stub", CacheTTL: time.Hour}, log),
		Records:     patientService,
		Verifier:    verifier,
		Permissions: perms,
		Log:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		DB:            sqlDB,
		MockPublisher: mockPublisher,
		Cache:         memCache,
		Generator:     gen,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// HostFor returns the request host that resolves to subdomain.
func HostFor(subdomain string) string {
	return subdomain + "." + baseDomain
}

// GenerateSuperAdminToken generates a SUPER_ADMIN token for this test server
func (ts *TestServer) GenerateSuperAdminToken(t *testing.T) string {
	t.Helper()
	return testutil.GenerateSuperAdminToken(t, ts.PrivateKey)
}

// GenerateTenantAdminToken generates a TENANT_ADMIN token for this test server
func (ts *TestServer) GenerateTenantAdminToken(t *testing.T, tenantID string) string {
	t.Helper()
	return testutil.GenerateTenantAdminToken(t, ts.PrivateKey, tenantID)
}

// GenerateClinicianToken generates a CLINICIAN token for this test server
func (ts *TestServer) GenerateClinicianToken(t *testing.T, tenantID string) string {
	t.Helper()
	return testutil.GenerateClinicianToken(t, ts.PrivateKey, tenantID)
}

// GenerateNurseToken generates a NURSE token for this test server
func (ts *TestServer) GenerateNurseToken(t *testing.T, tenantID string) string {
	t.Helper()
	return testutil.GenerateNurseToken(t, ts.PrivateKey, tenantID)
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}

type createdTenant struct {
	ID         string `json:"id"`
	Subdomain  string `json:"subdomain"`
	SchemaName string `json:"schema_name"`
}

// CreateTenant provisions a tenant through the admin API.
func (ts *TestServer) CreateTenant(t *testing.T, name, subdomain string) createdTenant {
	t.Helper()

	client := ts.NewClient(ts.GenerateSuperAdminToken(t))
	resp := client.POST(t, "/admin/tenants", map[string]interface{}{
		"name":          name,
		"subdomain":     subdomain,
		"contact_email": "admin@" + subdomain + ".example.com",
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var result struct {
		Tenant createdTenant `json:"tenant"`
	}
	testutil.DecodeJSON(t, resp, &result)
	if result.Tenant.ID == "" {
		t.Fatalf("tenant %s was not created", subdomain)
	}
	return result.Tenant
}
