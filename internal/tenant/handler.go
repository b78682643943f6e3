package tenant

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
	"github.com/WailSalutem-Health-Care/emr-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
	log     zerolog.Logger
}

func NewHandler(service ServiceInterface, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type SuccessResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Tenant  *Tenant `json:"tenant,omitempty"`
}

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		apperr.Write(w, http.StatusUnauthorized, apperr.Response{Error: "unauthenticated", Message: "User not authenticated"})
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	t, err := h.service.CreateTenant(r.Context(), req)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	h.log.Info().Str("tenant_id", t.ID).Str("user_id", principal.UserID).Msg("tenant created")
	respondJSON(w, http.StatusCreated, SuccessResponse{
		Success: true,
		Message: "Tenant created successfully with dedicated schema",
		Tenant:  t,
	})
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListTenants(r.Context(), pagination.ParseParams(r))
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTenant(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Tenant retrieved successfully",
		Tenant:  t,
	})
}

func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	t, err := h.service.UpdateTenant(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Tenant updated successfully",
		Tenant:  t,
	})
}

func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTenant(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperr.Respond(w, h.log, err)
		return
	}

	// Return 204 No Content on successful deletion
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
