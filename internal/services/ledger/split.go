package ledger

import (
	"fmt"
	"strings"
	"time"

	"billbuddy/internal/models"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(100_000_000)

// SplitEqually divides amount between members in cents. Every member gets
// the same truncated base share and the payer's share also takes the
// leftover cents, so the shares always sum to amount exactly.
func SplitEqually(amount decimal.Decimal, members []int64, payer int64) ([]models.ExpenseShare, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("split: no members")
	}

	payerIdx := -1
	for i, id := range members {
		if id == payer {
			payerIdx = i
			break
		}
	}
	if payerIdx < 0 {
		return nil, fmt.Errorf("split: payer %d is not among the members", payer)
	}

	cents := amount.Shift(2).IntPart()
	n := int64(len(members))
	base := cents / n
	remainder := cents - base*n

	shares := make([]models.ExpenseShare, len(members))
	for i, id := range members {
		c := base
		if i == payerIdx {
			c += remainder
		}
		shares[i] = models.ExpenseShare{UserID: id, Amount: decimal.New(c, -2)}
	}
	return shares, nil
}

// Exponent bounds checked before any rescaling, so values such as
// "1e-300000000" are rejected without building huge coefficients.
const (
	minAmountExponent = -20
	maxAmountExponent = 8
)

func validateAmount(field string, amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return utils.Invalid(field, "must be greater than 0")
	case amount.Exponent() < minAmountExponent:
		return utils.Invalid(field, "must have at most 2 decimal places")
	case amount.Exponent() > maxAmountExponent:
		return utils.Invalid(field, "must be less than 100000000")
	case !amount.Equal(amount.Truncate(2)):
		return utils.Invalid(field, "must have at most 2 decimal places")
	case amount.GreaterThanOrEqual(maxAmount):
		return utils.Invalid(field, "must be less than 100000000")
	}
	return nil
}

// normalizeDate accepts YYYY-MM-DD and falls back to today when empty.
func normalizeDate(field, value, today string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return today, nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", utils.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return value, nil
}

func validateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	switch {
	case desc == "":
		return "", utils.Invalid("description", "is required")
	case len([]rune(desc)) > 255:
		return "", utils.Invalid("description", "must be at most 255 characters")
	}
	return desc, nil
}
