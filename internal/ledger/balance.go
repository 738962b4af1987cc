package ledger

import "github.com/loyaltyhub/backend/internal/models"

// CalculateBalance derives the balance for one account from its ledger
// aggregates and the total of its active holds. Pure: no I/O, no clock.
//
// HOLD, RELEASE and REVERSAL entries are audit facts and do not move the
// current balance: a hold only affects the held total while it is ACTIVE, a
// release returns points that never left the current balance, and a
// reversal's effect comes from its opposite-typed counter-entry.
func CalculateBalance(agg BalanceAggregates, activeHoldsTotal int64) models.Balance {
	current := agg.Credits - agg.Debits - agg.Commits
	return models.Balance{
		CurrentBalance:   current,
		HeldBalance:      activeHoldsTotal,
		AvailableBalance: current - activeHoldsTotal,
	}
}
