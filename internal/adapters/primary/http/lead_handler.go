package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// LeadHandler accepts marketing-site lead submissions. The endpoint is
// public; abuse control is the route's rate limiter plus service-side
// dedup.
type LeadHandler struct {
	leads        ports.LeadService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads ports.LeadService, errorHandler *ErrorHandler, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		leads:        leads,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// leadResponse is the submission acknowledgement.
type leadResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message"`
}

// HandleSubmit handles POST /api/leads
func (h *LeadHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var lead domain.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Request body must be valid JSON"))
		return
	}

	receipt, err := h.leads.Submit(r.Context(), lead)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if receipt.Duplicate {
		// Repeat submissions are acknowledged, not errored; the
		// marketing site shows the same thank-you either way.
		WriteJSON(w, http.StatusOK, leadResponse{
			Success:   true,
			Duplicate: true,
			Message:   "Already received",
		})
		return
	}

	WriteJSON(w, http.StatusCreated, leadResponse{
		Success: true,
		Message: "Lead received",
	})
}
