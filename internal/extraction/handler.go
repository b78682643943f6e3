package extraction

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

type Handler struct {
	service ServiceInterface
	records RecordSource
	log     zerolog.Logger
}

func NewHandler(service ServiceInterface, records RecordSource, log zerolog.Logger) *Handler {
	return &Handler{service: service, records: records, log: log}
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	result, err := h.service.Extract(r.Context(), t.ID, req.Notes)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var req CategorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	result, err := h.service.Categorize(r.Context(), t.ID, req.Text)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}
	// Reject bad queries before touching the database.
	if err := checkInput("query", req.Query); err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	record, err := h.records.PatientRecordJSON(r.Context(), t.SchemaName, mux.Vars(r)["id"])
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	result, err := h.service.Search(r.Context(), t.ID, req.Query, record)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) ScanIDCard(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	// Multipart framing on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+64<<10)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid multipart form: %v", err))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("image file is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Failed to read image: %v", err))
		return
	}

	result, err := h.service.ScanIDCard(r.Context(), t.ID, image, http.DetectContentType(image))
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
