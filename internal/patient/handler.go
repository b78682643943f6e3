package patient

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

type Handler struct {
	service ServiceInterface
	log     zerolog.Logger
}

func NewHandler(service ServiceInterface, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type PatientSuccessResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Patient *Patient `json:"patient,omitempty"`
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	p, err := h.service.CreatePatient(r.Context(), tn, req)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, PatientSuccessResponse{
		Success: true,
		Message: "Patient created successfully",
		Patient: p,
	})
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	resp, err := h.service.ListPatients(r.Context(), tn, pagination.ParseParams(r))
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	p, err := h.service.GetPatient(r.Context(), tn, mux.Vars(r)["id"])
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient retrieved successfully",
		Patient: p,
	})
}

func (h *Handler) GetPatientByMRN(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	p, err := h.service.GetPatientByMRN(r.Context(), tn, mux.Vars(r)["mrn"])
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient retrieved successfully",
		Patient: p,
	})
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	p, err := h.service.UpdatePatient(r.Context(), tn, mux.Vars(r)["id"], req)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient updated successfully",
		Patient: p,
	})
}

func (h *Handler) PatchPatient(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("failed to read request body: %v", err))
		return
	}

	p, err := h.service.PatchPatient(r.Context(), tn, mux.Vars(r)["id"], body, r.Header.Get("Content-Type"))
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient updated successfully",
		Patient: p,
	})
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	if err := h.service.DeletePatient(r.Context(), tn, mux.Vars(r)["id"]); err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
