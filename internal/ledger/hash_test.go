package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/backend/internal/models"
)

func TestRequestHash(t *testing.T) {
	base := CreditCommand{
		TenantID:   "acme",
		Owner:      models.Owner{Type: models.OwnerTypeUser, ID: "u1"},
		Amount:     100,
		ReasonCode: "SIGNUP_BONUS",
	}

	t.Run("deterministic", func(t *testing.T) {
		a, err := requestHash(base)
		require.NoError(t, err)
		b, err := requestHash(base)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("field order does not matter", func(t *testing.T) {
		a, err := requestHash(map[string]any{"amount": 100, "tenant_id": "acme"})
		require.NoError(t, err)
		b, err := requestHash(map[string]any{"tenant_id": "acme", "amount": 100})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("payload change changes the hash", func(t *testing.T) {
		a, err := requestHash(base)
		require.NoError(t, err)

		changed := base
		changed.Amount = 101
		b, err := requestHash(changed)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestCanonicalJSON(t *testing.T) {
	body, err := canonicalJSON(Receipt{TransactionID: "tx1", Amount: 100})
	require.NoError(t, err)
	again, err := canonicalJSON(Receipt{TransactionID: "tx1", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, body, again)
	assert.Contains(t, string(body), `"transaction_id":"tx1"`)
}
