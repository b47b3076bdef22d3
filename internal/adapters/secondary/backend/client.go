package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// Client talks to the voice backend's REST surface. It is the only
// component that does; everything else goes through the ports it
// implements.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Ensure Client implements all backend-facing ports.
var (
	_ ports.OrgAuthority   = (*Client)(nil)
	_ ports.LeadGateway    = (*Client)(nil)
	_ ports.OAuthExchanger = (*Client)(nil)
	_ ports.CallLog        = (*Client)(nil)
	_ ports.BackendProber  = (*Client)(nil)
)

// NewClient creates a backend client. Outbound requests carry trace
// spans via the otelhttp transport.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("component", "backend_client"),
	}
}

// ValidateOrg asks the backend authority whether orgID exists and is
// accessible to the bearer of token.
func (c *Client) ValidateOrg(ctx context.Context, token, orgID string) (domain.OrgValidation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/orgs/validate/"+url.PathEscape(orgID), nil)
	if err != nil {
		return domain.OrgValidation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.OrgValidation{}, fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return domain.OrgValidation{}, err
	}

	var out domain.OrgValidation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.OrgValidation{}, fmt.Errorf("decoding validation response: %w", err)
	}
	return out, nil
}

// SubmitLead forwards a lead to the backend CRM.
func (c *Client) SubmitLead(ctx context.Context, lead domain.Lead) error {
	resp, err := c.postJSON(ctx, "/api/leads", lead, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return c.checkStatus(resp)
}

// ExchangeOAuthCode completes a calendar-connect OAuth flow.
func (c *Client) ExchangeOAuthCode(ctx context.Context, code, state string) (domain.OAuthResult, error) {
	body := map[string]string{"code": code, "state": state}
	resp, err := c.postJSON(ctx, "/api/oauth/exchange", body, "")
	if err != nil {
		return domain.OAuthResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.OAuthResult{}, fmt.Errorf("%w: %s", apperrors.ErrOAuthExchange, c.errorBody(resp))
	}

	var out domain.OAuthResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.OAuthResult{}, fmt.Errorf("decoding oauth response: %w", err)
	}
	return out, nil
}

// callsResponse is the backend's call-log envelope.
type callsResponse struct {
	Success bool                `json:"success"`
	Calls   []domain.CallRecord `json:"calls"`
}

// DashboardCalls reads the recent call log for one organization.
func (c *Client) DashboardCalls(ctx context.Context, token, orgID string, limit int) ([]domain.CallRecord, error) {
	u := c.baseURL + "/api/calls/dashboard?limit=" + strconv.Itoa(limit)
	if orgID != "" {
		u += "&orgId=" + url.QueryEscape(orgID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var out callsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding calls response: %w", err)
	}
	return out.Calls, nil
}

// Health probes the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", apperrors.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, token string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBackendUnavailable, err)
	}
	return resp, nil
}

// checkStatus maps backend HTTP statuses onto the console's error
// taxonomy. The body is consumed for its error message on failure.
func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.ErrOrgAccessDenied
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrOrgNotFound
	default:
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, c.errorBody(resp))
	}
}

// errorBody extracts the backend's error message, falling back to the
// raw body.
func (c *Client) errorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
