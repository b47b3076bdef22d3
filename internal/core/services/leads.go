package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/jonboulle/clockwork"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// LeadService validates marketing-site lead submissions, normalizes
// their phone numbers, suppresses repeats within the dedup window, and
// forwards the rest to the backend CRM. The dedup window is in-memory
// and lost on restart by design.
type LeadService struct {
	gateway ports.LeadGateway
	clock   clockwork.Clock
	logger  *slog.Logger

	window time.Duration
	region string

	mu   sync.Mutex
	seen map[string]time.Time
}

// Ensure implementation matches the interface.
var _ ports.LeadService = (*LeadService)(nil)

// NewLeadService creates a lead intake service. region is the default
// country for phone numbers submitted without a country code.
func NewLeadService(gateway ports.LeadGateway, window time.Duration, region string, clock clockwork.Clock, logger *slog.Logger) *LeadService {
	return &LeadService{
		gateway: gateway,
		clock:   clock,
		logger:  logger.With("component", "lead_service"),
		window:  window,
		region:  region,
		seen:    make(map[string]time.Time),
	}
}

// Submit processes one lead. A repeat submission inside the window is
// reported as a duplicate, not an error, and is not forwarded again.
func (s *LeadService) Submit(ctx context.Context, lead domain.Lead) (ports.LeadReceipt, error) {
	if err := lead.Validate(); err != nil {
		return ports.LeadReceipt{}, apperrors.NewValidationError(err, "Lead submission is invalid", fieldDetails(err))
	}

	if err := lead.NormalizePhone(s.region); err != nil {
		return ports.LeadReceipt{}, apperrors.NewValidationError(apperrors.ErrInvalidPhone, "Phone number is not valid", map[string]interface{}{
			"phone": lead.Phone,
		})
	}

	if s.isDuplicate(lead.DedupKey()) {
		s.logger.Info("suppressing duplicate lead", "source_page", lead.SourcePage)
		return ports.LeadReceipt{Duplicate: true}, nil
	}

	lead.SubmittedAt = s.clock.Now().UTC()
	if err := s.gateway.SubmitLead(ctx, lead); err != nil {
		// Do not remember a lead the backend never received.
		s.forget(lead.DedupKey())
		return ports.LeadReceipt{}, apperrors.NewBackendError(err)
	}

	s.logger.Info("lead forwarded", "source_page", lead.SourcePage)
	return ports.LeadReceipt{}, nil
}

// isDuplicate records key and reports whether it was already seen inside
// the window. Expired entries are pruned on the way through.
func (s *LeadService) isDuplicate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for k, at := range s.seen {
		if now.Sub(at) > s.window {
			delete(s.seen, k)
		}
	}

	if at, ok := s.seen[key]; ok && now.Sub(at) <= s.window {
		return true
	}
	s.seen[key] = now
	return false
}

func (s *LeadService) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

// fieldDetails flattens ozzo's per-field errors into response details.
func fieldDetails(err error) map[string]interface{} {
	details := make(map[string]interface{})
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			details[field] = ferr.Error()
		}
		return details
	}
	details["message"] = err.Error()
	return details
}
