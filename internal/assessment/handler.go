package assessment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

type Handler struct {
	service ServiceInterface
	log     zerolog.Logger
}

func NewHandler(service ServiceInterface, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	entries, err := h.service.Fetch(r.Context(), tn, mux.Vars(r)["id"])
	if err != nil {
		apperr.Respond(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) SaveAssessment(w http.ResponseWriter, r *http.Request) {
	tn, ok := tenant.FromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.log, tenant.ErrTenantNotFound)
		return
	}

	var entries map[string]string
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		apperr.Respond(w, h.log, apperr.Validationf("Invalid JSON payload: %v", err))
		return
	}

	result, err := h.service.Save(r.Context(), tn, mux.Vars(r)["id"], entries)
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
