package ledger

import "github.com/google/uuid"

type uuidGenerator struct{}

// NewUUIDGenerator returns the production IDGenerator backed by random UUIDs.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}
