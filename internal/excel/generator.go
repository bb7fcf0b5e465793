package excel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/trip-settlements/internal/model"
)

const summarySheet = "Liquidación"

var categorySheets = map[model.Category]string{
	model.CategoryFuel:       "Combustible",
	model.CategoryTolls:      "Casetas",
	model.CategoryMisc:       "Gastos varios",
	model.CategoryFreight:    "Fletes",
	model.CategoryDeductions: "Deducciones",
	model.CategoryAdvances:   "Anticipos",
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a workbook with the settlement summary on the first sheet and one
// sheet per child category.
func (g *Generator) Generate(report model.SettlementReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, report); err != nil {
		return nil, err
	}

	for _, category := range model.Categories {
		sheet := categorySheets[category]
		if _, err := file.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := g.writeLines(file, sheet, category, report); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, report model.SettlementReport) error {
	s := report.Settlement

	rows := [][2]interface{}{
		{"Folio", s.Folio},
		{"Cliente", s.Client},
		{"Estatus", string(s.Status)},
		{"Unidad", fmt.Sprintf("%s (%s)", report.Unit.Number, report.Unit.Category)},
		{"Operador", report.Operator.FullName()},
		{"Salida", formatDate(s.StartDate)},
		{"Regreso", formatDate(s.EndDate)},
		{"Llegada", formatDate(s.ArrivalDate)},
		{"Kilómetros", amount(s.DistanceKm)},
		{"Rendimiento tabulado", amount(s.TabulatedYield)},
		{"Rendimiento real", amount(s.RealYield)},
		{"Resultado rendimiento", string(s.YieldResult)},
		{"Diferencia a favor", amount(s.FuelFavorAmount)},
		{"Diferencia en contra", amount(s.FuelAgainstAmount)},
		{"Total combustible", amount(s.TotalFuel)},
		{"Litros", amount(s.TotalFuelLiters)},
		{"Total casetas", amount(s.TotalTolls)},
		{"Total gastos varios", amount(s.TotalMisc)},
		{"Total fletes", amount(s.TotalFreight)},
		{"Total deducciones", amount(s.TotalDeductions)},
		{"Total anticipos", amount(s.TotalAdvances)},
		{"Costo ferry", amount(s.FerryCost)},
		{"Porcentaje comisión", amount(s.CommissionPercentage)},
		{"Comisión estimada", amount(s.CommissionEstimated)},
		{"Comisión pagada", amount(s.EffectiveCommissionPaid())},
		{"Ajuste manual", amount(s.ManualAdjustment)},
		{"Motivo ajuste", optional(s.AdjustmentReason)},
		{"Total bruto", amount(s.GrossTotal)},
		{"Neto a pagar", amount(s.NetPayable)},
		{"Utilidad del viaje", amount(s.TripProfit)},
	}
	if s.NetPayableOverridden && s.NetPayableSuggested.Valid {
		rows = append(rows, [2]interface{}{"Neto sugerido", amount(s.NetPayableSuggested.Decimal)})
	}

	for i, row := range rows {
		r := i + 1
		if err := file.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), row[0]); err != nil {
			return err
		}
		if err := file.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), row[1]); err != nil {
			return err
		}
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 28)
	_ = file.SetColWidth(summarySheet, "B", "B", 36)
	return nil
}

func (g *Generator) writeLines(file *excelize.File, sheet string, category model.Category, report model.SettlementReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{"Fecha", "Concepto", "Importe"}
	if category.HasVolume() {
		headers = append(headers, "Litros", "Precio por litro")
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	lines := report.Lines(category)
	for i, line := range lines {
		row := i + 2
		set(fmt.Sprintf("A%d", row), formatDate(line.CreatedAt))
		set(fmt.Sprintf("B%d", row), line.Concept)
		set(fmt.Sprintf("C%d", row), amount(line.Amount))
		if category.HasVolume() {
			set(fmt.Sprintf("D%d", row), amount(line.Liters))
			set(fmt.Sprintf("E%d", row), amount(line.PricePerLiter))
		}
	}

	totalRow := len(lines) + 2
	set(fmt.Sprintf("B%d", totalRow), "Total")
	set(fmt.Sprintf("C%d", totalRow), amount(report.LineTotal(category)))

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "E", 16)
	return nil
}

// amount writes money as a number so the sheet can still sum it.
func amount(value decimal.Decimal) float64 {
	f, _ := value.Round(2).Float64()
	return f
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
