package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewLedgerEntry(t *testing.T) {
	t.Run("posts with a positive amount", func(t *testing.T) {
		entry, err := NewLedgerEntry("e1", "acme", "a1", EntryTypeCredit, 100, "SIGNUP_BONUS", Reference{}, entryTime)
		require.NoError(t, err)
		assert.Equal(t, EntryStatusPosted, entry.Status)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		_, err := NewLedgerEntry("e1", "acme", "a1", EntryTypeCredit, 0, "R", Reference{}, entryTime)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = NewLedgerEntry("e1", "acme", "a1", EntryTypeDebit, -10, "R", Reference{}, entryTime)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestNewJourneyLedgerEntry(t *testing.T) {
	t.Run("requires journey code and trigger", func(t *testing.T) {
		_, err := NewJourneyLedgerEntry("e1", "acme", "a1", EntryTypeCredit, 10, "R", Reference{},
			JourneyReference{JourneyCode: "WELCOME"}, entryTime)
		assert.ErrorIs(t, err, ErrJourneyReferenceRequired)
	})

	t.Run("attaches the journey reference", func(t *testing.T) {
		entry, err := NewJourneyLedgerEntry("e1", "acme", "a1", EntryTypeCredit, 10, "R", Reference{},
			JourneyReference{JourneyCode: "WELCOME", JourneyTrigger: "SIGNUP"}, entryTime)
		require.NoError(t, err)
		require.NotNil(t, entry.Journey)
		assert.Equal(t, "WELCOME", entry.Journey.JourneyCode)
	})
}

func TestLedgerEntry_MarkReversed(t *testing.T) {
	entry, err := NewLedgerEntry("e1", "acme", "a1", EntryTypeCredit, 100, "R", Reference{}, entryTime)
	require.NoError(t, err)

	require.NoError(t, entry.MarkReversed("e2"))
	assert.Equal(t, EntryStatusReversed, entry.Status)
	assert.Equal(t, "e2", entry.ReversedByID)

	assert.ErrorIs(t, entry.MarkReversed("e3"), ErrEntryAlreadyReversed)
	assert.Equal(t, "e2", entry.ReversedByID)
}
