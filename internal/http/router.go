package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/emr-service/internal/assessment"
	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
	"github.com/WailSalutem-Health-Care/emr-service/internal/extraction"
	"github.com/WailSalutem-Health-Care/emr-service/internal/patient"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

const (
	serviceName = "emr-service"
	idCardPath  = "/ai/id-card"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Tenants        tenant.ServiceInterface
	Resolver       *tenant.Resolver
	Patients       patient.ServiceInterface
	Assessments    assessment.ServiceInterface
	Extraction     extraction.ServiceInterface
	Records        extraction.RecordSource
	Verifier       auth.TokenVerifier
	Permissions    auth.Permissions
	Metrics        *telemetry.Metrics
	AllowedOrigins []string
	Log            zerolog.Logger
}

// SetupRouter initializes all routes for the application. CORS wraps the
// router so preflight requests are answered before route matching.
func SetupRouter(deps Dependencies) http.Handler {
	log := deps.Log

	tenantHandler := tenant.NewHandler(deps.Tenants, log.With().Str("component", "tenant").Logger())
	patientHandler := patient.NewHandler(deps.Patients, log.With().Str("component", "patient").Logger())
	assessmentHandler := assessment.NewHandler(deps.Assessments, log.With().Str("component", "assessment").Logger())
	aiHandler := extraction.NewHandler(deps.Extraction, deps.Records, log.With().Str("component", "extraction").Logger())

	authenticate := auth.Middleware(deps.Verifier, deps.Metrics, log)
	perm := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.RequirePermission(permission, deps.Permissions, deps.Metrics, log)(h)
	}

	r := mux.NewRouter()
	r.Use(
		Recovery(log),
		otelmux.Middleware(serviceName),
		AccessLog(log, deps.Metrics),
		BodyLimit(MaxBodyBytes, idCardPath),
	)

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	}).Methods(http.MethodGet)

	// Tenant administration lives outside any tenant's subdomain.
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(authenticate)
	admin.Handle("/tenants", perm("tenant:create", tenantHandler.CreateTenant)).Methods(http.MethodPost)
	admin.Handle("/tenants", perm("tenant:view", tenantHandler.ListTenants)).Methods(http.MethodGet)
	admin.Handle("/tenants/{id}", perm("tenant:view", tenantHandler.GetTenant)).Methods(http.MethodGet)
	admin.Handle("/tenants/{id}", perm("tenant:update", tenantHandler.UpdateTenant)).Methods(http.MethodPut)
	admin.Handle("/tenants/{id}", perm("tenant:delete", tenantHandler.DeleteTenant)).Methods(http.MethodDelete)

	// Everything else is scoped to the tenant named by the Host header.
	scoped := r.NewRoute().Subrouter()
	scoped.Use(
		deps.Resolver.Middleware,
		authenticate,
		auth.RequireTenantAccess(tenant.IDFromContext, log),
	)

	scoped.Handle("/patients", perm("patient:create", patientHandler.CreatePatient)).Methods(http.MethodPost)
	scoped.Handle("/patients", perm("patient:view", patientHandler.ListPatients)).Methods(http.MethodGet)
	scoped.Handle("/patients/mrn/{mrn}", perm("patient:view", patientHandler.GetPatientByMRN)).Methods(http.MethodGet)
	scoped.Handle("/patients/{id}", perm("patient:view", patientHandler.GetPatient)).Methods(http.MethodGet)
	scoped.Handle("/patients/{id}", perm("patient:update", patientHandler.UpdatePatient)).Methods(http.MethodPut)
	scoped.Handle("/patients/{id}", perm("patient:update", patientHandler.PatchPatient)).Methods(http.MethodPatch)
	scoped.Handle("/patients/{id}", perm("patient:delete", patientHandler.DeletePatient)).Methods(http.MethodDelete)

	scoped.Handle("/patients/{id}/assessment", perm("assessment:view", assessmentHandler.GetAssessment)).Methods(http.MethodGet)
	scoped.Handle("/patients/{id}/assessment", perm("assessment:update", assessmentHandler.SaveAssessment)).Methods(http.MethodPost)

	scoped.Handle("/patients/{id}/ai/search", perm("ai:use", aiHandler.Search)).Methods(http.MethodPost)
	scoped.Handle("/ai/extract", perm("ai:use", aiHandler.Extract)).Methods(http.MethodPost)
	scoped.Handle("/ai/categorize", perm("ai:use", aiHandler.Categorize)).Methods(http.MethodPost)
	scoped.Handle(idCardPath, perm("ai:use", aiHandler.ScanIDCard)).Methods(http.MethodPost)

	return CORSMiddleware(deps.AllowedOrigins)(r)
}
