package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCommissionPercentage infers the operator commission from the unit category label
// when the settlement has none assigned.
func DefaultCommissionPercentage(unitCategory string) decimal.Decimal {
	category := strings.ToUpper(unitCategory)
	switch {
	case strings.Contains(category, "TRACTOCAMION"), strings.Contains(category, "TRAILER"):
		return decimal.NewFromInt(18)
	case strings.Contains(category, "MUDANCERO"), strings.Contains(category, "MUDANZA"):
		return decimal.NewFromInt(20)
	default:
		// CAMIONETA and unknown categories earn no commission by default.
		return decimal.Zero
	}
}

type CommissionInput struct {
	FreightRevenue   decimal.Decimal
	FuelCost         decimal.Decimal
	FerryCost        decimal.Decimal
	StoredPercentage decimal.Decimal
	UnitCategory     string
	PaidOverride     decimal.NullDecimal
}

type CommissionResult struct {
	Base       decimal.Decimal
	Percentage decimal.Decimal
	Estimated  decimal.Decimal
	Paid       decimal.Decimal
}

func Commission(in CommissionInput) CommissionResult {
	base := in.FreightRevenue.Sub(in.FuelCost).Sub(in.FerryCost)

	pct := in.StoredPercentage
	if !pct.IsPositive() {
		pct = DefaultCommissionPercentage(in.UnitCategory)
	}

	estimated := decimal.Zero
	if base.IsPositive() && pct.IsPositive() {
		estimated = base.Mul(pct).Div(hundred)
	}

	paid := estimated
	if in.PaidOverride.Valid {
		paid = in.PaidOverride.Decimal
	}

	return CommissionResult{
		Base:       base,
		Percentage: pct,
		Estimated:  estimated,
		Paid:       paid,
	}
}
