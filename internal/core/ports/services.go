package ports

import (
	"context"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

// OrgGuard decides whether the current session is authorized for exactly
// one organization. Failures are returned as state, never as errors; the
// guard schedules its own redirects through the Navigator.
type OrgGuard interface {
	// Apply feeds the latest session snapshot through the guard and
	// returns the resulting access decision. A new Apply supersedes any
	// in-flight validation and cancels a pending redirect.
	Apply(ctx context.Context, session domain.Session) domain.OrgAccess

	// Result returns the most recent access decision.
	Result() domain.OrgAccess
}

// Navigator is where the guard sends its delayed redirects. Browser-flow
// consumers navigate; API consumers plug in a recorder or a no-op.
type Navigator interface {
	Redirect(path string)
}

// LeadReceipt reports the outcome of a lead submission.
type LeadReceipt struct {
	Duplicate bool
}

// LeadService validates, normalizes, dedupes and forwards lead
// submissions.
type LeadService interface {
	Submit(ctx context.Context, lead domain.Lead) (LeadReceipt, error)
}

// EventBroadcaster fans a stream event out to connected dashboard
// clients.
type EventBroadcaster interface {
	Broadcast(event domain.StreamEvent) error
}

// EventSource is the live-call event stream as seen by consumers. The
// cancel function returned by Subscribe removes exactly that
// registration.
type EventSource interface {
	Subscribe(kind domain.EventKind, fn func(domain.StreamEvent)) (cancel func())
	Available() bool
}
