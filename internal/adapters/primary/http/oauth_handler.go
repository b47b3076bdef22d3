package http

import (
	"log/slog"
	"net/http"

	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

const (
	oauthSuccessPath = "/dashboard/settings?calendar=connected"
	oauthFailurePath = "/dashboard/settings?calendar=error"
)

// OAuthHandler completes the calendar-connect OAuth dance. The provider
// redirects the browser here; the handler exchanges the code with the
// backend and bounces the browser back into the dashboard.
type OAuthHandler struct {
	exchanger ports.OAuthExchanger
	logger    *slog.Logger
}

// NewOAuthHandler creates a new OAuth callback handler
func NewOAuthHandler(exchanger ports.OAuthExchanger, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		logger:    logger,
	}
}

// HandleCallback handles GET /api/oauth/callback
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("oauth provider returned an error",
			"request_id", requestID,
			"provider_error", errCode,
		)
		http.Redirect(w, r, oauthFailurePath, http.StatusFound)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("oauth callback missing code", "request_id", requestID)
		http.Redirect(w, r, oauthFailurePath, http.StatusFound)
		return
	}

	result, err := h.exchanger.ExchangeOAuthCode(r.Context(), code, query.Get("state"))
	if err != nil || !result.Success {
		h.logger.Error("oauth code exchange failed",
			"request_id", requestID,
			"error", err,
		)
		http.Redirect(w, r, oauthFailurePath, http.StatusFound)
		return
	}

	h.logger.Info("calendar connected",
		"request_id", requestID,
		"provider", result.Provider,
	)
	http.Redirect(w, r, oauthSuccessPath, http.StatusFound)
}
