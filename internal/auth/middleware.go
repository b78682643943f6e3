package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/emr-service/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// PermissionMetricsRecorder interface for recording permission check metrics
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

func unauthorized(w http.ResponseWriter, message string) {
	apperr.Write(w, http.StatusUnauthorized, apperr.Response{Error: "unauthenticated", Message: message})
}

func forbidden(w http.ResponseWriter, message string) {
	apperr.Write(w, http.StatusForbidden, apperr.Response{Error: "forbidden", Message: message})
}

// Middleware validates the bearer token and injects the Principal into the
// request context. metrics may be nil.
func Middleware(ver TokenVerifier, metrics MetricsRecorder, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(reason, message string) {
				span.SetStatus(codes.Error, message)
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				unauthorized(w, message)
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				fail("missing_authorization", "missing authorization")
				return
			}

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				fail("invalid_header_format", "invalid authorization header")
				return
			}

			pr, err := ver.ParseAndVerifyToken(parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("token validation failed")
				fail("invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
				attribute.String("tenant.id", pr.TenantID),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			ctx = context.WithValue(ctx, principalKey, pr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission returns middleware that ensures the principal has
// permission. metrics may be nil.
func RequirePermission(per string, perms Permissions, metrics PermissionMetricsRecorder, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			elapsed := func() float64 {
				return float64(time.Since(start).Microseconds()) / 1000
			}

			pr, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, elapsed(), false)
				}
				unauthorized(w, "unauthenticated")
				return
			}

			allowed := HasPermission(pr, per, perms)

			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, per, elapsed(), allowed)
			}

			if !allowed {
				log.Warn().
					Str("user_id", pr.UserID).
					Strs("roles", pr.Roles).
					Str("permission", per).
					Msg("permission denied")
				span.SetStatus(codes.Error, "forbidden")
				forbidden(w, "missing permission "+per)
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFunc reports the tenant resolved for a request.
type TenantFunc func(ctx context.Context) (tenantID string, ok bool)

// RequireTenantAccess rejects principals whose tenantId claim differs from
// the tenant the request was routed to. SUPER_ADMIN may access any tenant.
// It must run after Middleware and after tenant resolution.
func RequireTenantAccess(resolved TenantFunc, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pr, ok := FromContext(r.Context())
			if !ok {
				unauthorized(w, "unauthenticated")
				return
			}
			tenantID, ok := resolved(r.Context())
			if !ok {
				apperr.Write(w, http.StatusNotFound, apperr.Response{Error: "not_found", Message: "tenant not resolved"})
				return
			}
			if pr.IsSuperAdmin() || pr.TenantID == tenantID {
				next.ServeHTTP(w, r)
				return
			}
			log.Warn().
				Str("user_id", pr.UserID).
				Str("token_tenant", pr.TenantID).
				Str("request_tenant", tenantID).
				Msg("cross-tenant access denied")
			forbidden(w, "access to this tenant is not allowed")
		})
	}
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok && pr != nil
}

// HasPermission checks roles -> permissions mapping. Role lookup falls back
// to upper case so lower-case realm roles match permissions.yml.
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	for _, role := range pr.Roles {
		pList, ok := perms[role]
		if !ok {
			pList, ok = perms[strings.ToUpper(role)]
		}
		if !ok {
			continue
		}
		for _, p := range pList {
			if p == permission {
				return true
			}
		}
	}
	return false
}
