package calc

import "github.com/shopspring/decimal"

type TotalsInput struct {
	CommissionPaid   decimal.Decimal
	FuelFavorAmount  decimal.Decimal
	ManualAdjustment decimal.Decimal
	Advances         decimal.Decimal

	// NetOverridden locks the net payable to StoredNetPayable.
	NetOverridden    bool
	StoredNetPayable decimal.Decimal

	Profit ProfitInput
}

type ProfitInput struct {
	FreightRevenue decimal.Decimal
	FuelCost       decimal.Decimal
	FerryCost      decimal.Decimal
	Tolls          decimal.Decimal
	Misc           decimal.Decimal
	Deductions     decimal.Decimal
}

type TotalsResult struct {
	Gross      decimal.Decimal
	NetPayable decimal.Decimal
	Profit     decimal.Decimal
}

// Totals derives gross, net payable and trip profit. The manual adjustment is always
// subtracted, so a negative adjustment works as a bonus.
func Totals(in TotalsInput) TotalsResult {
	gross := in.CommissionPaid.Add(in.FuelFavorAmount).Sub(in.ManualAdjustment)

	net := gross.Sub(in.Advances)
	if in.NetOverridden {
		net = in.StoredNetPayable
	}

	return TotalsResult{
		Gross:      gross,
		NetPayable: net,
		Profit:     Profit(in.Profit, net),
	}
}

// Profit is the company margin once costs and the operator payment are taken out.
func Profit(in ProfitInput, netPayable decimal.Decimal) decimal.Decimal {
	return in.FreightRevenue.
		Sub(in.FuelCost).
		Sub(in.FerryCost).
		Sub(in.Tolls).
		Sub(in.Misc).
		Sub(in.Deductions).
		Sub(netPayable)
}
