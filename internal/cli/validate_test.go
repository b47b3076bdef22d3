package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestValidate_RejectsMalformedID(t *testing.T) {
	out, err := runCommand(t, "validate", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, out, "Invalid organization ID format")
	assert.Contains(t, out, "would redirect to /login?error=invalid_org_id")
}

func TestValidate_ConfirmedByBackend(t *testing.T) {
	const orgID = "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orgs/validate/"+orgID, r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.OrgValidation{
			Success:   true,
			OrgID:     orgID,
			Validated: true,
		})
	}))
	defer srv.Close()

	out, err := runCommand(t, "validate", orgID, "--backend-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "organization validated")
}

func TestValidate_MismatchedConfirmation(t *testing.T) {
	const orgID = "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.OrgValidation{
			Success:   true,
			OrgID:     "00000000-0000-4000-8000-000000000000",
			Validated: true,
		})
	}))
	defer srv.Close()

	out, err := runCommand(t, "validate", orgID, "--backend-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, out, "unexpected result")
	assert.Contains(t, out, "would redirect to /login?error=validation_failed")
}

func TestCalls_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/calls/dashboard", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"calls":[{"id":"call-1","status":"completed"}]}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, "calls", "--backend-url", srv.URL, "--json")
	require.NoError(t, err)

	var calls []domain.CallRecord
	require.NoError(t, json.Unmarshal([]byte(out), &calls))
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)

	// Reset the persistent flag for other tests.
	jsonOutput = false
}
