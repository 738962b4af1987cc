package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loyaltyhub/backend/internal/models"
)

func TestValidateCommand(t *testing.T) {
	vh := NewValidationHelper()
	owner := models.Owner{Type: models.OwnerTypeUser, ID: "u1"}

	t.Run("valid command passes", func(t *testing.T) {
		err := vh.ValidateCommand(CreditCommand{
			TenantID: "acme", Owner: owner, Amount: 10, ReasonCode: "R",
		})
		assert.NoError(t, err)
	})

	t.Run("zero amount maps to invalid amount", func(t *testing.T) {
		err := vh.ValidateCommand(CreditCommand{
			TenantID: "acme", Owner: owner, ReasonCode: "R",
		})
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	})

	t.Run("negative amount maps to invalid amount", func(t *testing.T) {
		err := vh.ValidateCommand(DebitCommand{
			TenantID: "acme", Owner: owner, Amount: -1, ReasonCode: "R",
		})
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	})

	t.Run("missing journey reference maps to its sentinel", func(t *testing.T) {
		err := vh.ValidateCommand(PostJourneyEntryCommand{
			TenantID: "acme", Member: owner, EntryType: models.EntryTypeCredit,
			Amount: 10, IdempotencyKey: "k",
		})
		assert.ErrorIs(t, err, models.ErrJourneyReferenceRequired)
	})

	t.Run("missing idempotency key on a command requiring one", func(t *testing.T) {
		err := vh.ValidateCommand(ReverseCommand{
			TenantID: "acme", EntryID: "e1", ReasonCode: "R",
		})
		assert.ErrorIs(t, err, models.ErrIdempotencyKeyRequired)
	})

	t.Run("other failures wrap the generic validation error", func(t *testing.T) {
		err := vh.ValidateCommand(CreditCommand{
			Owner: owner, Amount: 10, ReasonCode: "R",
		})
		assert.True(t, errors.Is(err, models.ErrValidation))
	})

	t.Run("journey entry type restricted to credit and debit", func(t *testing.T) {
		err := vh.ValidateCommand(PostJourneyEntryCommand{
			TenantID: "acme", Member: owner, EntryType: models.EntryTypeHold,
			Amount: 10, JourneyCode: "J", JourneyTrigger: "T", IdempotencyKey: "k",
		})
		assert.True(t, errors.Is(err, models.ErrValidation))
	})
}
