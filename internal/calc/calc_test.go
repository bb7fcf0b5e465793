package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/trip-settlements/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, want, Money(got).StringFixed(2), msgAndArgs...)
}

func TestEvaluateFuel_FavorScenario(t *testing.T) {
	out := EvaluateFuel(FuelInput{
		DistanceKm:     dec("1000"),
		TabulatedYield: dec("5"),
		Liters:         dec("180"),
		Amount:         dec("4500"),
	})

	assertMoney(t, "25.00", out.AvgPricePerLtr)
	assertMoney(t, "200.00", out.ExpectedLiters)
	assertMoney(t, "-20.00", out.VarianceLiters)
	assertMoney(t, "-500.00", out.VarianceWithTax)
	assertMoney(t, "-431.03", out.VarianceNoTax)
	assert.Equal(t, model.YieldFavor, out.Result)
	assertMoney(t, "431.03", out.FavorAmount)
	assert.True(t, out.AgainstAmount.IsZero())
	assert.Equal(t, "5.56", out.RealYield.StringFixed(2))
}

func TestEvaluateFuel_ContraScenario(t *testing.T) {
	out := EvaluateFuel(FuelInput{
		DistanceKm:     dec("1000"),
		TabulatedYield: dec("5"),
		Liters:         dec("220"),
		Amount:         dec("5500"),
	})

	assert.Equal(t, model.YieldContra, out.Result)
	assert.True(t, out.FavorAmount.IsZero())
	assertMoney(t, "431.03", out.AgainstAmount)
}

func TestEvaluateFuel_Tolerance(t *testing.T) {
	cases := []struct {
		name   string
		liters string
		want   model.YieldResult
	}{
		{name: "exactly over by tolerance", liters: "200.1", want: model.YieldNeutral},
		{name: "exactly under by tolerance", liters: "199.9", want: model.YieldNeutral},
		{name: "just over tolerance", liters: "200.100001", want: model.YieldContra},
		{name: "just under tolerance", liters: "199.899999", want: model.YieldFavor},
		{name: "on target", liters: "200", want: model.YieldNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := EvaluateFuel(FuelInput{
				DistanceKm:     dec("1000"),
				TabulatedYield: dec("5"),
				Liters:         dec(tc.liters),
				Amount:         dec(tc.liters).Mul(dec("25")),
			})
			assert.Equal(t, tc.want, out.Result)
			if tc.want == model.YieldNeutral {
				assert.True(t, out.FavorAmount.IsZero())
				assert.True(t, out.AgainstAmount.IsZero())
			}
		})
	}
}

func TestEvaluateFuel_FavorAndAgainstNeverBothSet(t *testing.T) {
	for liters := int64(0); liters <= 400; liters += 7 {
		out := EvaluateFuel(FuelInput{
			DistanceKm:     dec("1200"),
			TabulatedYield: dec("4.5"),
			Liters:         decimal.NewFromInt(liters),
			Amount:         decimal.NewFromInt(liters * 24),
		})
		assert.False(t, !out.FavorAmount.IsZero() && !out.AgainstAmount.IsZero(), "liters=%d", liters)
	}
}

func TestEvaluateFuel_DegenerateInputs(t *testing.T) {
	out := EvaluateFuel(FuelInput{})
	assert.True(t, out.RealYield.IsZero())
	assert.True(t, out.FavorAmount.IsZero())
	assert.True(t, out.AgainstAmount.IsZero())
	assert.Equal(t, model.YieldNeutral, out.Result)

	// A missing tabulated yield behaves like a yield of 1 km/l.
	out = EvaluateFuel(FuelInput{DistanceKm: dec("100"), Liters: dec("50"), Amount: dec("1000")})
	assertMoney(t, "100.00", out.ExpectedLiters)
	assert.Equal(t, model.YieldFavor, out.Result)
}

func TestDefaultCommissionPercentage(t *testing.T) {
	cases := map[string]string{
		"TRACTOCAMION":      "18",
		"tractocamion full": "18",
		"Trailer 53 ft":     "18",
		"MUDANCERO":         "20",
		"camion de mudanza": "20",
		"CAMIONETA 3.5":     "0",
		"RABON":             "0",
		"":                  "0",
	}
	for category, want := range cases {
		assert.Equal(t, want, DefaultCommissionPercentage(category).String(), category)
	}
}

func TestCommission_DefaultPercentageScenario(t *testing.T) {
	out := Commission(CommissionInput{
		FreightRevenue: dec("10000"),
		FuelCost:       dec("4500"),
		FerryCost:      decimal.Zero,
		UnitCategory:   "TRACTOCAMION",
	})

	assert.Equal(t, "18", out.Percentage.String())
	assertMoney(t, "5500.00", out.Base)
	assertMoney(t, "990.00", out.Estimated)
	assertMoney(t, "990.00", out.Paid)
}

func TestCommission_StoredPercentageWins(t *testing.T) {
	out := Commission(CommissionInput{
		FreightRevenue:   dec("10000"),
		FuelCost:         dec("4000"),
		FerryCost:        dec("1000"),
		StoredPercentage: dec("10"),
		UnitCategory:     "MUDANZA",
	})
	assert.Equal(t, "10", out.Percentage.String())
	assertMoney(t, "500.00", out.Estimated)
}

func TestCommission_NegativeBaseEarnsNothing(t *testing.T) {
	out := Commission(CommissionInput{
		FreightRevenue: dec("1000"),
		FuelCost:       dec("2000"),
		UnitCategory:   "TRAILER",
	})
	assert.True(t, out.Base.IsNegative())
	assert.True(t, out.Estimated.IsZero())
	assert.True(t, out.Paid.IsZero())
}

func TestCommission_PaidOverride(t *testing.T) {
	out := Commission(CommissionInput{
		FreightRevenue: dec("10000"),
		FuelCost:       dec("4500"),
		UnitCategory:   "TRACTOCAMION",
		PaidOverride:   decimal.NewNullDecimal(dec("1500")),
	})
	assertMoney(t, "990.00", out.Estimated)
	assertMoney(t, "1500.00", out.Paid)

	// An explicit zero override still wins over the estimate.
	out = Commission(CommissionInput{
		FreightRevenue: dec("10000"),
		FuelCost:       dec("4500"),
		UnitCategory:   "TRACTOCAMION",
		PaidOverride:   decimal.NewNullDecimal(decimal.Zero),
	})
	assert.True(t, out.Paid.IsZero())
}

func TestTotals_Scenario(t *testing.T) {
	out := Totals(TotalsInput{
		CommissionPaid:   dec("990"),
		FuelFavorAmount:  dec("431.0344827586206897"),
		ManualAdjustment: decimal.Zero,
		Advances:         dec("200"),
		Profit: ProfitInput{
			FreightRevenue: dec("10000"),
			FuelCost:       dec("4500"),
		},
	})

	assertMoney(t, "1421.03", out.Gross)
	assertMoney(t, "1221.03", out.NetPayable)
	assertMoney(t, "4278.97", out.Profit)
}

func TestTotals_NetIsGrossMinusAdvancesWithoutOverride(t *testing.T) {
	for i := int64(0); i < 50; i++ {
		in := TotalsInput{
			CommissionPaid:   decimal.NewFromInt(100 + i*37),
			FuelFavorAmount:  decimal.NewFromInt(i * 3),
			ManualAdjustment: decimal.NewFromInt(i % 7),
			Advances:         decimal.NewFromInt(i * 11),
		}
		out := Totals(in)
		assert.True(t, out.NetPayable.Equal(out.Gross.Sub(in.Advances)), "i=%d", i)
	}
}

func TestTotals_NegativeAdjustmentIncreasesGross(t *testing.T) {
	out := Totals(TotalsInput{
		CommissionPaid:   dec("1000"),
		ManualAdjustment: dec("-250"),
	})
	assertMoney(t, "1250.00", out.Gross)
	assertMoney(t, "1250.00", out.NetPayable)
}

func TestTotals_OverrideLocksNetPayable(t *testing.T) {
	out := Totals(TotalsInput{
		CommissionPaid:   dec("990"),
		FuelFavorAmount:  dec("431.03"),
		Advances:         dec("200"),
		NetOverridden:    true,
		StoredNetPayable: dec("1000"),
		Profit: ProfitInput{
			FreightRevenue: dec("10000"),
			FuelCost:       dec("4500"),
			Tolls:          dec("100"),
		},
	})

	assertMoney(t, "1421.03", out.Gross)
	assertMoney(t, "1000.00", out.NetPayable)
	assertMoney(t, "4400.00", out.Profit)
}

func TestProfit_SubtractsEveryCost(t *testing.T) {
	got := Profit(ProfitInput{
		FreightRevenue: dec("20000"),
		FuelCost:       dec("5000"),
		FerryCost:      dec("1200"),
		Tolls:          dec("800"),
		Misc:           dec("300"),
		Deductions:     dec("700"),
	}, dec("2000"))
	assertMoney(t, "10000.00", got)
}
