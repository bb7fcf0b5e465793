// Package calc holds the settlement arithmetic: fuel efficiency, operator commission and
// the payable totals. Nothing here rounds except where noted; callers round with Money
// when values are written to the settlement.
package calc

import (
	"github.com/shopspring/decimal"

	"github.com/nurpe/trip-settlements/internal/model"
)

var (
	// taxDivisor removes the 16% VAT included in fuel tickets.
	taxDivisor = decimal.RequireFromString("1.16")
	// litersTolerance is the variance still treated as on-target.
	litersTolerance = decimal.RequireFromString("0.1")

	hundred = decimal.NewFromInt(100)
)

type FuelInput struct {
	DistanceKm     decimal.Decimal
	TabulatedYield decimal.Decimal
	Liters         decimal.Decimal
	Amount         decimal.Decimal
}

type FuelResult struct {
	RealYield       decimal.Decimal
	AvgPricePerLtr  decimal.Decimal
	ExpectedLiters  decimal.Decimal
	VarianceLiters  decimal.Decimal
	VarianceWithTax decimal.Decimal
	VarianceNoTax   decimal.Decimal
	FavorAmount     decimal.Decimal
	AgainstAmount   decimal.Decimal
	Result          model.YieldResult
}

// EvaluateFuel compares consumed liters with the liters expected from the tabulated yield
// and prices the difference without tax.
func EvaluateFuel(in FuelInput) FuelResult {
	yield := in.TabulatedYield
	if !yield.IsPositive() {
		yield = decimal.NewFromInt(1)
	}

	out := FuelResult{
		RealYield:      decimal.Zero,
		AvgPricePerLtr: decimal.Zero,
		FavorAmount:    decimal.Zero,
		AgainstAmount:  decimal.Zero,
		Result:         model.YieldNeutral,
	}

	if in.Liters.IsPositive() {
		out.RealYield = in.DistanceKm.Div(in.Liters).Round(2)
		out.AvgPricePerLtr = in.Amount.Div(in.Liters)
	}

	out.ExpectedLiters = in.DistanceKm.Div(yield)
	out.VarianceLiters = in.Liters.Sub(out.ExpectedLiters)
	out.VarianceWithTax = out.VarianceLiters.Mul(out.AvgPricePerLtr)
	out.VarianceNoTax = out.VarianceWithTax.Div(taxDivisor)

	switch {
	case out.VarianceLiters.GreaterThan(litersTolerance):
		out.Result = model.YieldContra
		out.AgainstAmount = out.VarianceNoTax.Abs()
	case out.VarianceLiters.LessThan(litersTolerance.Neg()):
		out.Result = model.YieldFavor
		out.FavorAmount = out.VarianceNoTax.Abs()
	}
	return out
}

// Money rounds a monetary value to cents.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
