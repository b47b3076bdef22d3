package ports

import (
	"context"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

// OrgAuthority is the backend service of record for tenant existence.
// The console never decides organization membership on its own; it only
// relays the authority's answer.
type OrgAuthority interface {
	ValidateOrg(ctx context.Context, token, orgID string) (domain.OrgValidation, error)
}

// LeadGateway forwards validated lead submissions to the backend CRM.
type LeadGateway interface {
	SubmitLead(ctx context.Context, lead domain.Lead) error
}

// OAuthExchanger completes a calendar-connect OAuth flow against the
// backend.
type OAuthExchanger interface {
	ExchangeOAuthCode(ctx context.Context, code, state string) (domain.OAuthResult, error)
}

// CallLog reads the dashboard call history from the backend.
type CallLog interface {
	DashboardCalls(ctx context.Context, token, orgID string, limit int) ([]domain.CallRecord, error)
}

// BackendProber reports whether the backend answers its health endpoint.
type BackendProber interface {
	Health(ctx context.Context) error
}
