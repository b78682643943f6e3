package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome attribute values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all custom metrics for the service. A nil *Metrics is valid;
// every Record method is then a no-op.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	TenantTotal       metric.Int64Counter
	PatientTotal      metric.Int64Counter
	AssessmentTotal   metric.Int64Counter
	ExtractionTotal   metric.Int64Counter
	ExtractionLatency metric.Float64Histogram

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics against the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/emr-service")
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.TenantTotal, "tenant_total", "Total number of tenant operations", "{operation}"},
		{&m.PatientTotal, "patient_total", "Total number of patient operations", "{operation}"},
		{&m.AssessmentTotal, "assessment_total", "Total number of assessment operations", "{operation}"},
		{&m.ExtractionTotal, "extraction_total", "Total number of AI extraction calls", "{call}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.HTTPDurationMs, "http_server_duration_milliseconds", "HTTP request duration in milliseconds"},
		{&m.ExtractionLatency, "extraction_duration_milliseconds", "Generative model call duration in milliseconds"},
		{&m.PermissionCheckDuration, "permission_check_duration_ms", "Permission check duration in milliseconds"},
	}
	for _, h := range histograms {
		histogram, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms"))
		if err != nil {
			return nil, err
		}
		*h.dst = histogram
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTenantOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.TenantTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordPatientOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.PatientTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordAssessmentOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.AssessmentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordExtraction records one model-backed call. outcome is a short error
// kind ("success", "upstream_parse_error", ...).
func (m *Metrics) RecordExtraction(ctx context.Context, kind, outcome string, cached bool, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
		attribute.Bool("cached", cached),
	)
	m.ExtractionTotal.Add(ctx, 1, attrs)
	m.ExtractionLatency.Record(ctx, durationMs, attrs)
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}

// Outcome maps an error onto the outcome attribute.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
