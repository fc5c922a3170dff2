// Package money provides exact decimal amount helpers for the billing ledger.
// All monetary values in the system are shopspring decimals; this deployment
// operates in a single currency (USD), carried as a tag rather than converted.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CurrencyUSD is the only currency this deployment bills in.
const CurrencyUSD = "USD"

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
)

// Zero is the additive identity for amounts.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// RequirePositive validates an amount used for charges and payments.
func RequirePositive(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}
	return nil
}

// RequireNonNegative validates an amount that may legitimately be zero,
// such as an unset insurance value.
func RequireNonNegative(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// SplitEvenly divides total into n shares that sum back to total exactly.
// The first n-1 shares are the plain decimal quotient; the final share
// absorbs whatever remainder the division left behind, so no precision leaks
// regardless of how total relates to n.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	shares := make([]decimal.Decimal, n)
	if n == 1 {
		shares[0] = total
		return shares
	}

	base := total.Div(decimal.NewFromInt(int64(n)))
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = base
		running = running.Add(base)
	}
	shares[n-1] = total.Sub(running)
	return shares
}

// Display rounds an amount to cents for presentation. Internal arithmetic
// never uses this; only response mapping does.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
