package models

// Balance is derived from ledger aggregates plus active holds. It is never
// persisted as truth.
type Balance struct {
	CurrentBalance   int64 `json:"current_balance"`
	HeldBalance      int64 `json:"held_balance"`
	AvailableBalance int64 `json:"available_balance"`
}
