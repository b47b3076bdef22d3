package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// MockOrgAuthority is a mock implementation of ports.OrgAuthority
type MockOrgAuthority struct {
	mock.Mock
}

func NewMockOrgAuthority() *MockOrgAuthority {
	return &MockOrgAuthority{}
}

func (m *MockOrgAuthority) ValidateOrg(ctx context.Context, token, orgID string) (domain.OrgValidation, error) {
	args := m.Called(ctx, token, orgID)
	return args.Get(0).(domain.OrgValidation), args.Error(1)
}

// MockLeadGateway is a mock implementation of ports.LeadGateway
type MockLeadGateway struct {
	mock.Mock
}

func NewMockLeadGateway() *MockLeadGateway {
	return &MockLeadGateway{}
}

func (m *MockLeadGateway) SubmitLead(ctx context.Context, lead domain.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockOAuthExchanger is a mock implementation of ports.OAuthExchanger
type MockOAuthExchanger struct {
	mock.Mock
}

func NewMockOAuthExchanger() *MockOAuthExchanger {
	return &MockOAuthExchanger{}
}

func (m *MockOAuthExchanger) ExchangeOAuthCode(ctx context.Context, code, state string) (domain.OAuthResult, error) {
	args := m.Called(ctx, code, state)
	return args.Get(0).(domain.OAuthResult), args.Error(1)
}

// MockCallLog is a mock implementation of ports.CallLog
type MockCallLog struct {
	mock.Mock
}

func NewMockCallLog() *MockCallLog {
	return &MockCallLog{}
}

func (m *MockCallLog) DashboardCalls(ctx context.Context, token, orgID string, limit int) ([]domain.CallRecord, error) {
	args := m.Called(ctx, token, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CallRecord), args.Error(1)
}

// MockLeadService is a mock implementation of ports.LeadService
type MockLeadService struct {
	mock.Mock
}

func NewMockLeadService() *MockLeadService {
	return &MockLeadService{}
}

func (m *MockLeadService) Submit(ctx context.Context, lead domain.Lead) (ports.LeadReceipt, error) {
	args := m.Called(ctx, lead)
	return args.Get(0).(ports.LeadReceipt), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.StreamEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// RecordingNavigator captures redirects issued by the guard. It is a
// hand-rolled recorder rather than a testify mock because guard tests
// assert on ordering and on the absence of redirects.
type RecordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func NewRecordingNavigator() *RecordingNavigator {
	return &RecordingNavigator{}
}

func (n *RecordingNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// Redirects returns a copy of all redirect targets seen so far.
func (n *RecordingNavigator) Redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}
