package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/Odiabackend099/voxanne-console/internal/adapters/primary/http/middleware"
	"github.com/Odiabackend099/voxanne-console/internal/auth"
	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
	"github.com/Odiabackend099/voxanne-console/internal/core/mocks"
)

const testOrgID = "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b"

// orgRouter mounts the handler the way the gateway does, with verified
// claims already in the request context.
func orgRouter(authority *mocks.MockOrgAuthority, claims *auth.Claims) stdhttp.Handler {
	logger := discardLogger()
	handler := NewOrgHandler(authority, NewErrorHandler(logger), logger)

	r := chi.NewRouter()
	r.Use(func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			if claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), mw.UserClaimsKey, claims))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/orgs/validate/{orgID}", handler.HandleValidate)
	return r
}

func TestOrgHandler_Validated(t *testing.T) {
	authority := mocks.NewMockOrgAuthority()
	authority.On("ValidateOrg", mock.Anything, "tok-1", testOrgID).
		Return(domain.OrgValidation{Success: true, OrgID: testOrgID, Validated: true}, nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/orgs/validate/"+testOrgID, nil)
	rec := httptest.NewRecorder()

	orgRouter(authority, &auth.Claims{UserID: "user-1", Token: "tok-1"}).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var resp domain.OrgValidation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Validated)
	assert.Equal(t, testOrgID, resp.OrgID)
}

func TestOrgHandler_MalformedID(t *testing.T) {
	authority := mocks.NewMockOrgAuthority()

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/orgs/validate/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	orgRouter(authority, &auth.Claims{Token: "tok-1"}).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INVALID_ORG_FORMAT", resp.Code)
	authority.AssertNotCalled(t, "ValidateOrg", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrgHandler_BackendStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		backendErr error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.ErrOrgNotFound, stdhttp.StatusNotFound, "ORG_NOT_FOUND"},
		{"access denied", apperrors.ErrOrgAccessDenied, stdhttp.StatusForbidden, "ORG_ACCESS_DENIED"},
		{"unauthorized", apperrors.ErrUnauthorized, stdhttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"backend down", apperrors.ErrBackendUnavailable, stdhttp.StatusBadGateway, "BACKEND_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authority := mocks.NewMockOrgAuthority()
			authority.On("ValidateOrg", mock.Anything, mock.Anything, testOrgID).
				Return(domain.OrgValidation{}, tc.backendErr)

			req := httptest.NewRequest(stdhttp.MethodGet, "/api/orgs/validate/"+testOrgID, nil)
			rec := httptest.NewRecorder()

			orgRouter(authority, &auth.Claims{Token: "tok-1"}).ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

func TestOrgHandler_MismatchedConfirmation(t *testing.T) {
	authority := mocks.NewMockOrgAuthority()
	authority.On("ValidateOrg", mock.Anything, mock.Anything, testOrgID).
		Return(domain.OrgValidation{
			Success:   true,
			OrgID:     "00000000-0000-4000-8000-000000000000",
			Validated: true,
		}, nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/orgs/validate/"+testOrgID, nil)
	rec := httptest.NewRecorder()

	orgRouter(authority, &auth.Claims{Token: "tok-1"}).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ORG_MISMATCH", resp.Code)
}
