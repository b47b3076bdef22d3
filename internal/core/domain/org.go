package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Pre-defined errors for organization validation.
var (
	ErrInvalidOrgID = errors.New("organization id is not a canonical uuid")
	ErrOrgMismatch  = errors.New("validated organization id does not match the requested one")
)

// GuardState represents the lifecycle state of an organization access check.
type GuardState string

const (
	GuardIdle       GuardState = "idle"
	GuardLoading    GuardState = "loading"
	GuardValidating GuardState = "validating"
	GuardValid      GuardState = "valid"
	GuardInvalid    GuardState = "invalid"
)

// GuardEvent represents an input that drives the access check forward.
type GuardEvent string

const (
	EventSessionLoading   GuardEvent = "session_loading"
	EventSessionResolved  GuardEvent = "session_resolved"
	EventValidationPassed GuardEvent = "validation_passed"
	EventValidationFailed GuardEvent = "validation_failed"
	EventReset            GuardEvent = "reset"
)

// GuardTransition defines a valid state change: an event moves the guard
// from Src to Dst.
type GuardTransition struct {
	Event GuardEvent
	Src   GuardState
	Dst   GuardState
}

// GuardTransitions defines all valid state changes for the access check.
// A resolved session can fail immediately (missing or malformed claim)
// without passing through validating, and any settled state resets when
// the session changes.
var GuardTransitions = []GuardTransition{
	{Event: EventSessionLoading, Src: GuardIdle, Dst: GuardLoading},
	{Event: EventSessionResolved, Src: GuardIdle, Dst: GuardValidating},
	{Event: EventSessionResolved, Src: GuardLoading, Dst: GuardValidating},
	{Event: EventValidationPassed, Src: GuardValidating, Dst: GuardValid},
	{Event: EventValidationFailed, Src: GuardValidating, Dst: GuardInvalid},
	{Event: EventReset, Src: GuardLoading, Dst: GuardIdle},
	{Event: EventReset, Src: GuardValidating, Dst: GuardIdle},
	{Event: EventReset, Src: GuardValid, Dst: GuardIdle},
	{Event: EventReset, Src: GuardInvalid, Dst: GuardIdle},
}

// GuardTransitionError is returned when a guard event is not allowed from
// the current state.
type GuardTransitionError struct {
	Event   GuardEvent
	Current GuardState
}

func (e *GuardTransitionError) Error() string {
	return fmt.Sprintf("guard event %q not allowed from state %q", e.Event, e.Current)
}

// Session is a snapshot of the authenticated session as seen by the guard.
// OrgClaim must come from the admin-controlled claim namespace; callers
// never populate it from user-writable profile data.
type Session struct {
	Loading       bool
	Authenticated bool
	UserID        string
	OrgClaim      string
	Token         string
}

// OrgAccess is the result of an organization access check. Consumers must
// withhold protected content while Loading or !Valid.
type OrgAccess struct {
	OrgID   string `json:"orgId,omitempty"`
	Valid   bool   `json:"valid"`
	Err     string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

// OrgValidation is the backend authority's answer for one organization id.
type OrgValidation struct {
	Success   bool   `json:"success"`
	OrgID     string `json:"orgId"`
	Validated bool   `json:"validated"`
}

// Confirmed reports whether the authority confirmed requested exists and is
// the organization it validated.
func (v OrgValidation) Confirmed(requested string) error {
	if !v.Success || !v.Validated {
		return ErrOrgMismatch
	}
	if v.OrgID != requested {
		return ErrOrgMismatch
	}
	return nil
}

// ValidateOrgID checks that s is a canonical 8-4-4-4-12 UUID. uuid.Parse
// alone also accepts braced, URN and 32-digit forms, so the shape is
// checked first.
func ValidateOrgID(s string) error {
	if len(s) != 36 {
		return ErrInvalidOrgID
	}
	for _, i := range []int{8, 13, 18, 23} {
		if s[i] != '-' {
			return ErrInvalidOrgID
		}
	}
	if strings.ContainsAny(s, "{}") {
		return ErrInvalidOrgID
	}
	if _, err := uuid.Parse(s); err != nil {
		return ErrInvalidOrgID
	}
	return nil
}
