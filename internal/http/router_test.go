package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WailSalutem-Health-Care/emr-service/internal/assessment"
	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/patient"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

var (
	tenantA = &tenant.Tenant{ID: "tenant-a", Subdomain: "alpha", SchemaName: "tenant_alpha_00000001", Status: tenant.StatusActive}
	tenantB = &tenant.Tenant{ID: "tenant-b", Subdomain: "beta", SchemaName: "tenant_beta_00000002", Status: tenant.StatusActive}
)

// staticVerifier maps bearer tokens to principals
type staticVerifier map[string]*auth.Principal

func (v staticVerifier) ParseAndVerifyToken(token string) (*auth.Principal, error) {
	if pr, ok := v[token]; ok {
		return pr, nil
	}
	return nil, errors.New("unknown token")
}

type staticLookup struct{}

func (staticLookup) Resolve(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	for _, t := range []*tenant.Tenant{tenantA, tenantB} {
		if t.Subdomain == subdomain {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (staticLookup) ResolveFallback(ctx context.Context) (*tenant.Tenant, error) {
	return tenantA, nil
}

// stubPatients implements patient.ServiceInterface; unset methods panic.
type stubPatients struct {
	patient.ServiceInterface
	seen *tenant.Tenant
}

func (s *stubPatients) ListPatients(ctx context.Context, tn *tenant.Tenant, params pagination.Params) (*patient.PaginatedPatientListResponse, error) {
	s.seen = tn
	return &patient.PaginatedPatientListResponse{Success: true, Patients: []patient.Patient{}}, nil
}

func (s *stubPatients) CreatePatient(ctx context.Context, tn *tenant.Tenant, req patient.CreatePatientRequest) (*patient.Patient, error) {
	s.seen = tn
	return &patient.Patient{ID: "p-1", MRN: req.MRN}, nil
}

type stubAssessments struct {
	assessment.ServiceInterface
}

func (stubAssessments) Save(ctx context.Context, tn *tenant.Tenant, patientID string, entries map[string]string) (*assessment.SaveResult, error) {
	return &assessment.SaveResult{Created: len(entries)}, nil
}

type stubTenants struct {
	tenant.ServiceInterface
}

func (stubTenants) ListTenants(ctx context.Context, params pagination.Params) (*tenant.PaginatedListResponse, error) {
	return &tenant.PaginatedListResponse{Success: true, Tenants: []tenant.Tenant{*tenantA, *tenantB}}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubPatients) {
	t.Helper()

	patients := &stubPatients{}
	perms := auth.Permissions{
		auth.RoleSuperAdmin: {"tenant:view", "patient:view", "patient:create"},
		auth.RoleClinician:  {"patient:view", "patient:create", "assessment:update"},
		auth.RoleNurse:      {"patient:view"},
	}
	verifier := staticVerifier{
		"admin":     {UserID: "u-admin", Roles: []string{auth.RoleSuperAdmin}},
		"clinician": {UserID: "u-clin", Roles: []string{auth.RoleClinician}, TenantID: tenantA.ID},
		"nurse":     {UserID: "u-nurse", Roles: []string{auth.RoleNurse}, TenantID: tenantA.ID},
		"outsider":  {UserID: "u-out", Roles: []string{auth.RoleClinician}, TenantID: tenantB.ID},
	}

	handler := SetupRouter(Dependencies{
		Tenants:        stubTenants{},
		Resolver:       tenant.NewResolver(staticLookup{}, config.Tenancy{BaseDomain: "emr.test"}, logging.Nop()),
		Patients:       patients,
		Assessments:    stubAssessments{},
		Verifier:       verifier,
		Permissions:    perms,
		AllowedOrigins: []string{"https://app.emr.test"},
		Log:            logging.Nop(),
	})
	return handler, patients
}

func serve(h http.Handler, method, host, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = host
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// TestRouter_Health tests the public liveness endpoint
func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := serve(h, http.MethodGet, "emr.test", "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}
}

// TestRouter_Preflight tests that CORS preflight requests bypass routing
func TestRouter_Preflight(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/patients", nil)
	req.Host = "alpha.emr.test"
	req.Header.Set("Origin", "https://app.emr.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.emr.test" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
}

// TestRouter_TenantScoping tests the resolver, authentication and tenant access chain
func TestRouter_TenantScoping(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		token      string
		wantStatus int
	}{
		{"no subdomain", "emr.test", "clinician", http.StatusNotFound},
		{"unknown tenant", "gamma.emr.test", "clinician", http.StatusNotFound},
		{"no token", "alpha.emr.test", "", http.StatusUnauthorized},
		{"invalid token", "alpha.emr.test", "forged", http.StatusUnauthorized},
		{"other tenant's token", "alpha.emr.test", "outsider", http.StatusForbidden},
		{"own tenant", "alpha.emr.test", "clinician", http.StatusOK},
		{"super admin on any tenant", "beta.emr.test", "admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestRouter(t)
			rr := serve(h, http.MethodGet, tt.host, "/patients", tt.token, "")
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

// TestRouter_ResolvedTenantReachesService tests that handlers see the host's tenant
func TestRouter_ResolvedTenantReachesService(t *testing.T) {
	h, patients := newTestRouter(t)

	rr := serve(h, http.MethodGet, "beta.emr.test:8080", "/patients", "admin", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if patients.seen == nil || patients.seen.ID != tenantB.ID {
		t.Errorf("Expected tenant %q, got %+v", tenantB.ID, patients.seen)
	}
}

// TestRouter_Permissions tests role based route permissions
func TestRouter_Permissions(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := serve(h, http.MethodPost, "alpha.emr.test", "/patients", "nurse", `{"mrn":"M-1","first_name":"A","last_name":"B"}`)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected nurse create to be forbidden, got %d", rr.Code)
	}

	rr = serve(h, http.MethodPost, "alpha.emr.test", "/patients", "clinician", `{"mrn":"M-1","first_name":"A","last_name":"B"}`)
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected clinician create to succeed, got %d", rr.Code)
	}
}

// TestRouter_BodyLimit tests that oversized JSON bodies are rejected
func TestRouter_BodyLimit(t *testing.T) {
	h, _ := newTestRouter(t)

	small := `{"head":"bruise"}`
	rr := serve(h, http.MethodPost, "alpha.emr.test", "/patients/p-1/assessment", "clinician", small)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	large := `{"head":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rr = serve(h, http.MethodPost, "alpha.emr.test", "/patients/p-1/assessment", "clinician", large)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for oversized body, got %d", rr.Code)
	}
}

// TestRouter_AdminRoutes tests that tenant administration needs no tenant host
func TestRouter_AdminRoutes(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := serve(h, http.MethodGet, "emr.test", "/admin/tenants", "admin", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	rr = serve(h, http.MethodGet, "emr.test", "/admin/tenants", "clinician", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected clinician to be forbidden, got %d", rr.Code)
	}

	rr = serve(h, http.MethodGet, "emr.test", "/admin/tenants", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

// TestRecovery tests that panics become 500 responses
func TestRecovery(t *testing.T) {
	h := Recovery(logging.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("Expected panic value to be hidden")
	}
}
