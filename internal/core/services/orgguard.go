package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

const (
	loginPath = "/login"

	// missingClaimDelay gives the user time to read the "no organization
	// assigned" message before navigating away.
	missingClaimDelay = 2000 * time.Millisecond

	// redirectDelay is the shorter delay used for every failure after
	// the claim has been found.
	redirectDelay = 1500 * time.Millisecond
)

// Human-readable outcomes surfaced to the dashboard.
const (
	msgNoSession    = "No authenticated user"
	msgNoOrg        = "No organization assigned"
	msgBadFormat    = "Invalid organization ID format"
	msgMismatch     = "Organization validation returned an unexpected result"
	msgNotFound     = "Organization does not exist"
	msgNoAccess     = "No access to this organization"
	msgAuthRequired = "Authentication required"
)

// OrgAccessGuard answers "is this session authorized for exactly one
// organization, and which one?" The tenant id is taken only from the
// session's admin-controlled claim, checked for canonical UUID shape,
// and confirmed against the backend authority. Failures become state
// plus a delayed redirect; they are never returned as errors.
type OrgAccessGuard struct {
	authority ports.OrgAuthority
	nav       ports.Navigator
	clock     clockwork.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	machine  *guardMachine
	result   domain.OrgAccess
	seq      uint64
	redirect clockwork.Timer
}

// Ensure implementation matches the interface.
var _ ports.OrgGuard = (*OrgAccessGuard)(nil)

// NewOrgAccessGuard creates a guard. The clock is injected so redirect
// timers can be driven in tests.
func NewOrgAccessGuard(authority ports.OrgAuthority, nav ports.Navigator, clock clockwork.Clock, logger *slog.Logger) *OrgAccessGuard {
	return &OrgAccessGuard{
		authority: authority,
		nav:       nav,
		clock:     clock,
		logger:    logger.With("component", "org_guard"),
		machine:   newGuardMachine(),
	}
}

// Result returns the most recent access decision.
func (g *OrgAccessGuard) Result() domain.OrgAccess {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// State returns the guard's current lifecycle state.
func (g *OrgAccessGuard) State() domain.GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.machine.current()
}

// Apply feeds the latest session snapshot through the guard. Each call
// supersedes the previous one: it cancels any pending redirect, and a
// backend answer for an older call is discarded so a stale validation
// can never overwrite a newer result.
func (g *OrgAccessGuard) Apply(ctx context.Context, session domain.Session) domain.OrgAccess {
	g.mu.Lock()

	g.cancelRedirectLocked()
	g.seq++
	reqID := g.seq
	g.resetLocked(ctx)

	// Never validate against a still-loading session.
	if session.Loading {
		g.fireLocked(ctx, domain.EventSessionLoading)
		g.result = domain.OrgAccess{Loading: true}
		defer g.mu.Unlock()
		return g.result
	}

	g.fireLocked(ctx, domain.EventSessionResolved)

	if !session.Authenticated {
		// The caller decides what to do without a session; no redirect.
		g.fireLocked(ctx, domain.EventValidationFailed)
		g.result = domain.OrgAccess{Valid: false, Err: msgNoSession}
		defer g.mu.Unlock()
		return g.result
	}

	if session.OrgClaim == "" {
		g.fireLocked(ctx, domain.EventValidationFailed)
		g.result = domain.OrgAccess{Valid: false, Err: msgNoOrg}
		g.scheduleRedirectLocked(loginPath, missingClaimDelay)
		defer g.mu.Unlock()
		return g.result
	}

	if err := domain.ValidateOrgID(session.OrgClaim); err != nil {
		g.fireLocked(ctx, domain.EventValidationFailed)
		g.result = domain.OrgAccess{Valid: false, Err: msgBadFormat}
		g.scheduleRedirectLocked(loginPath+"?error=invalid_org_id", redirectDelay)
		defer g.mu.Unlock()
		return g.result
	}

	g.result = domain.OrgAccess{OrgID: session.OrgClaim, Loading: true}
	g.mu.Unlock()

	validation, err := g.authority.ValidateOrg(ctx, session.Token, session.OrgClaim)

	g.mu.Lock()
	defer g.mu.Unlock()

	if reqID != g.seq {
		// A newer Apply superseded this validation while it was in
		// flight; its answer is stale.
		g.logger.Debug("discarding stale validation response",
			"org_id", session.OrgClaim,
			"request", reqID,
			"latest", g.seq,
		)
		return g.result
	}

	if err != nil {
		msg, target := mapAuthorityError(err)
		g.fireLocked(ctx, domain.EventValidationFailed)
		g.result = domain.OrgAccess{Valid: false, Err: msg}
		g.scheduleRedirectLocked(target, redirectDelay)
		g.logger.Warn("organization validation failed",
			"org_id", session.OrgClaim,
			"error", msg,
		)
		return g.result
	}

	if err := validation.Confirmed(session.OrgClaim); err != nil {
		g.fireLocked(ctx, domain.EventValidationFailed)
		g.result = domain.OrgAccess{Valid: false, Err: msgMismatch}
		g.scheduleRedirectLocked(loginPath+"?error=validation_failed", redirectDelay)
		g.logger.Warn("authority answered for a different organization",
			"requested", session.OrgClaim,
			"returned", validation.OrgID,
		)
		return g.result
	}

	g.fireLocked(ctx, domain.EventValidationPassed)
	g.result = domain.OrgAccess{OrgID: session.OrgClaim, Valid: true}
	return g.result
}

// mapAuthorityError translates backend failures into the guard's
// messages and redirect targets. Only an authentication failure goes to
// the bare login route; everything else carries its message in the
// error query parameter.
func mapAuthorityError(err error) (msg, target string) {
	switch {
	case errors.Is(err, apperrors.ErrOrgNotFound):
		msg = msgNotFound
	case errors.Is(err, apperrors.ErrOrgAccessDenied):
		msg = msgNoAccess
	case errors.Is(err, apperrors.ErrUnauthorized):
		return msgAuthRequired, loginPath
	default:
		msg = err.Error()
	}
	return msg, loginPath + "?error=" + url.QueryEscape(msg)
}

func (g *OrgAccessGuard) resetLocked(ctx context.Context) {
	if g.machine.current() == domain.GuardIdle {
		return
	}
	if err := g.machine.fire(ctx, domain.EventReset); err != nil {
		g.logger.Error("guard reset rejected", "state", g.machine.current(), "error", err)
	}
}

func (g *OrgAccessGuard) fireLocked(ctx context.Context, event domain.GuardEvent) {
	if err := g.machine.fire(ctx, event); err != nil {
		g.logger.Error("guard transition rejected",
			"event", event,
			"state", g.machine.current(),
			"error", err,
		)
	}
}

func (g *OrgAccessGuard) scheduleRedirectLocked(target string, delay time.Duration) {
	g.redirect = g.clock.AfterFunc(delay, func() {
		g.nav.Redirect(target)
	})
}

func (g *OrgAccessGuard) cancelRedirectLocked() {
	if g.redirect != nil {
		g.redirect.Stop()
		g.redirect = nil
	}
}
