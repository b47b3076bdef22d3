package http

import (
	"log/slog"
	"net/http"
	"strconv"

	mw "github.com/Odiabackend099/voxanne-console/internal/adapters/primary/http/middleware"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

const (
	defaultCallLimit = 50
	maxCallLimit     = 200
)

// CallsHandler serves the dashboard call log. Mounted behind the
// organization access check, so the org ID in context is validated.
type CallsHandler struct {
	callLog      ports.CallLog
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewCallsHandler creates a new call log handler
func NewCallsHandler(callLog ports.CallLog, errorHandler *ErrorHandler, logger *slog.Logger) *CallsHandler {
	return &CallsHandler{
		callLog:      callLog,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// HandleDashboard handles GET /api/calls/dashboard
func (h *CallsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFrom(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	orgID, ok := mw.OrgIDFrom(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrForbidden)
		return
	}

	limit := defaultCallLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "limit must be a positive integer"))
			return
		}
		if parsed > maxCallLimit {
			parsed = maxCallLimit
		}
		limit = parsed
	}

	calls, err := h.callLog.DashboardCalls(r.Context(), claims.Token, orgID, limit)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, calls)
}
