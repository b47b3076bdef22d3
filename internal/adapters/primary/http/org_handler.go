package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/Odiabackend099/voxanne-console/internal/adapters/primary/http/middleware"
	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// OrgHandler exposes the organization validation check to the dashboard.
type OrgHandler struct {
	authority    ports.OrgAuthority
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewOrgHandler creates a new organization handler
func NewOrgHandler(authority ports.OrgAuthority, errorHandler *ErrorHandler, logger *slog.Logger) *OrgHandler {
	return &OrgHandler{
		authority:    authority,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// HandleValidate handles GET /api/orgs/validate/{orgID}
func (h *OrgHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFrom(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	orgID := chi.URLParam(r, "orgID")
	if err := domain.ValidateOrgID(orgID); err != nil {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidOrgFormat)
		return
	}

	result, err := h.authority.ValidateOrg(r.Context(), claims.Token, orgID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := result.Confirmed(orgID); err != nil {
		h.logger.Warn("authority confirmed a different organization",
			"request_id", GetRequestID(r.Context()),
			"requested", orgID,
			"validated", result.OrgID,
		)
		h.errorHandler.Handle(w, r, apperrors.ErrOrgMismatch)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
