package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// OrgIDKey is the context key for the validated organization ID.
const OrgIDKey contextKey = "orgID"

// GuardFactory builds a fresh access guard for one request. Guards carry
// per-check state, so they are never shared across requests.
type GuardFactory func(nav ports.Navigator) ports.OrgGuard

// noopNavigator discards redirects. API consumers surface failures as
// status codes instead of navigating.
type noopNavigator struct{}

func (noopNavigator) Redirect(string) {}

// OrgAccess runs the organization access check for the authenticated
// session and rejects the request unless the check settles on valid.
// Must be mounted after Authenticate.
func OrgAccess(newGuard GuardFactory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			guard := newGuard(noopNavigator{})
			access := guard.Apply(r.Context(), domain.Session{
				Authenticated: true,
				UserID:        claims.UserID,
				OrgClaim:      claims.OrgID,
				Token:         claims.Token,
			})

			if access.Loading || !access.Valid {
				msg := access.Err
				if msg == "" {
					msg = "No access to this organization"
				}
				logger.Warn("organization access rejected",
					"request_id", GetRequestID(r.Context()),
					"user_id", claims.UserID,
					"reason", msg,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": msg,
					"code":  "ORG_ACCESS_DENIED",
				})
				return
			}

			ctx := context.WithValue(r.Context(), OrgIDKey, access.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OrgIDFrom extracts the validated organization ID stored by OrgAccess.
func OrgIDFrom(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(OrgIDKey).(string)
	return orgID, ok
}
