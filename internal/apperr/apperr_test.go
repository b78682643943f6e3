package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Forbidden, http.StatusForbidden},
		{UpstreamParse, http.StatusBadGateway},
		{UpstreamSchema, http.StatusUnprocessableEntity},
		{Internal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("saving: %w", NotFoundf("patient %s not found", "p1"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestRespond_ValidationMessageVerbatim(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, zerolog.Nop(), Validationf("notes must not be empty"))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "notes must not be empty", resp.Message)
}

func TestRespond_UpstreamSchemaIncludesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New(UpstreamSchema, "model output did not match schema").
		WithDetails([]string{"categories: value must be an array"})
	Respond(rec, zerolog.Nop(), err)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "upstream_schema_error", resp["error"])
	assert.NotNil(t, resp["details"])
}

func TestRespond_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, zerolog.Nop(), errors.New("pq: connection refused to 10.0.0.3"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "10.0.0.3")

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "internal_error", resp.Error)
	assert.Equal(t, internalMessage, resp.Message)
}
