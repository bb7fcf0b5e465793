package model

import "github.com/shopspring/decimal"

// SettlementReport is everything the exports print for one settlement.
type SettlementReport struct {
	Settlement Settlement
	Unit       Unit
	Operator   Operator
	Expenses   map[Category][]Expense
}

// Lines returns the child rows of a category in creation order.
func (r SettlementReport) Lines(category Category) []Expense {
	return r.Expenses[category]
}

func (r SettlementReport) LineTotal(category Category) decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Expenses[category] {
		total = total.Add(line.Amount)
	}
	return total
}
