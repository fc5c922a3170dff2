package billing

import (
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
)

// RecomputeBalances folds the DEBIT/CREDIT rule over entries, starting from
// prior, and rewrites each entry's BalanceAfter in place. Entries must already
// be in ledger order: (transaction_date, seq) ascending. Payment application
// entries do not step the running balance; they mirror it, matching how the
// allocator stamps them at creation time.
//
// It returns the final running balance.
func RecomputeBalances(prior decimal.Decimal, entries []*ledger.Entry) decimal.Decimal {
	running := prior
	for _, e := range entries {
		if e.Origin.CountsTowardBalance() {
			running = e.Apply(running)
		}
		e.BalanceAfter = running
	}
	return running
}
