package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLead() Lead {
	return Lead{
		Name:  "Ada Wong",
		Email: "ada@example.com",
		Phone: "+14155552671",
	}
}

func TestLeadValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validLead().Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		lead := validLead()
		lead.Name = ""
		assert.Error(t, lead.Validate())
	})

	t.Run("bad email", func(t *testing.T) {
		lead := validLead()
		lead.Email = "not-an-email"
		assert.Error(t, lead.Validate())
	})

	t.Run("phone too short", func(t *testing.T) {
		lead := validLead()
		lead.Phone = "12345"
		assert.Error(t, lead.Validate())
	})
}

func TestLeadDedupKey(t *testing.T) {
	a := Lead{Email: "Ada@Example.com"}
	b := Lead{Email: "  ada@example.com "}
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestLeadNormalizePhone(t *testing.T) {
	t.Run("national format gets region code", func(t *testing.T) {
		lead := Lead{Phone: "(415) 555-2671"}
		require.NoError(t, lead.NormalizePhone("US"))
		assert.Equal(t, "+14155552671", lead.Phone)
	})

	t.Run("e164 input is preserved", func(t *testing.T) {
		lead := Lead{Phone: "+442083661177"}
		require.NoError(t, lead.NormalizePhone("US"))
		assert.Equal(t, "+442083661177", lead.Phone)
	})

	t.Run("nonsense number fails", func(t *testing.T) {
		lead := Lead{Phone: "0000000"}
		assert.Error(t, lead.NormalizePhone("US"))
	})
}
