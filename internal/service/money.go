package service

import "github.com/shopspring/decimal"

// maxAmount is the smallest value that no longer fits a decimal(20,2) column.
var maxAmount = decimal.New(1, 18)

// validAmount reports whether amount is positive, has at most two decimal
// places and fits the amount columns.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() &&
		amount.Equal(amount.Round(2)) &&
		amount.LessThan(maxAmount)
}
