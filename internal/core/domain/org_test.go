package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrgID(t *testing.T) {
	tests := []struct {
		name    string
		orgID   string
		wantErr bool
	}{
		{"canonical lowercase", "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b", false},
		{"canonical uppercase", "3F1C8A9E-4B2D-4E6F-9A1B-2C3D4E5F6A7B", false},
		{"empty", "", true},
		{"no dashes", "3f1c8a9e4b2d4e6f9a1b2c3d4e5f6a7b", true},
		{"braced", "{3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b}", true},
		{"urn prefixed", "urn:uuid:3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b", true},
		{"too short", "3f1c8a9e-4b2d-4e6f-9a1b", true},
		{"trailing garbage", "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7bXX", true},
		{"bad hex", "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7z", true},
		{"dashes misplaced", "3f1c8a9e4-b2d-4e6f-9a1b-2c3d4e5f6a7b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrgID(tt.orgID)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOrgID)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOrgValidationConfirmed(t *testing.T) {
	const orgID = "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b"

	t.Run("confirmed", func(t *testing.T) {
		v := OrgValidation{Success: true, OrgID: orgID, Validated: true}
		assert.NoError(t, v.Confirmed(orgID))
	})

	t.Run("different org validated", func(t *testing.T) {
		v := OrgValidation{Success: true, OrgID: "00000000-0000-4000-8000-000000000000", Validated: true}
		assert.ErrorIs(t, v.Confirmed(orgID), ErrOrgMismatch)
	})

	t.Run("not validated", func(t *testing.T) {
		v := OrgValidation{Success: true, OrgID: orgID, Validated: false}
		assert.ErrorIs(t, v.Confirmed(orgID), ErrOrgMismatch)
	})

	t.Run("unsuccessful envelope", func(t *testing.T) {
		v := OrgValidation{Success: false, OrgID: orgID, Validated: true}
		assert.ErrorIs(t, v.Confirmed(orgID), ErrOrgMismatch)
	})
}

func TestGuardTransitions(t *testing.T) {
	// Every transition source and destination must be a known state.
	known := map[GuardState]bool{
		GuardIdle: true, GuardLoading: true, GuardValidating: true,
		GuardValid: true, GuardInvalid: true,
	}
	for _, tr := range GuardTransitions {
		assert.True(t, known[tr.Src], "unknown src state %q", tr.Src)
		assert.True(t, known[tr.Dst], "unknown dst state %q", tr.Dst)
	}

	// Settled states only reset; they never validate again directly.
	for _, tr := range GuardTransitions {
		if tr.Src == GuardValid || tr.Src == GuardInvalid {
			assert.Equal(t, EventReset, tr.Event)
			assert.Equal(t, GuardIdle, tr.Dst)
		}
	}
}
