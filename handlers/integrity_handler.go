package handlers

import (
	"encoding/json"
	"net/http"

	"tenant-integrity-service/models"
	"tenant-integrity-service/services"

	"github.com/gorilla/mux"
)

// IntegrityHandler handles integrity-related HTTP requests
type IntegrityHandler struct {
	integrity *services.IntegrityService
}

// NewIntegrityHandler creates a new integrity handler
func NewIntegrityHandler(integrity *services.IntegrityService) *IntegrityHandler {
	return &IntegrityHandler{integrity: integrity}
}

// GetGlobalHealth handles GET /api/v1/integrity/health
func (h *IntegrityHandler) GetGlobalHealth(w http.ResponseWriter, r *http.Request) {
	summary := h.integrity.GetGlobalHealthSummary(r.Context())
	writeJSONResponse(w, http.StatusOK, summary)
}

// GetTenantHealth handles GET /api/v1/integrity/tenants/{id}/health
func (h *IntegrityHandler) GetTenantHealth(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenantID := vars["id"]
	if tenantID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "tenant id is required", "")
		return
	}

	summary, err := h.integrity.GetTenantHealthSummary(r.Context(), tenantID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}
	if summary == nil {
		writeErrorResponse(w, http.StatusNotFound, "tenant not found", tenantID)
		return
	}

	writeJSONResponse(w, http.StatusOK, summary)
}

// GenerateRepairPreview handles POST /api/v1/integrity/repairs/preview
func (h *IntegrityHandler) GenerateRepairPreview(w http.ResponseWriter, r *http.Request) {
	var opts models.PreviewOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	result, err := h.integrity.GenerateRepairPreview(r.Context(), opts)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// ApplyRepairs handles POST /api/v1/integrity/repairs/apply
func (h *IntegrityHandler) ApplyRepairs(w http.ResponseWriter, r *http.Request) {
	var opts models.ApplyOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	actor := models.Actor{
		UserID:    r.Header.Get("X-Actor-ID"),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	result, err := h.integrity.ApplyRepairs(r.Context(), opts, actor)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}
