package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/nurpe/trip-settlements/internal/model"
)

var categoryTitles = map[model.Category]string{
	model.CategoryFuel:       "Combustible",
	model.CategoryTolls:      "Casetas",
	model.CategoryMisc:       "Gastos varios",
	model.CategoryFreight:    "Fletes",
	model.CategoryDeductions: "Deducciones",
	model.CategoryAdvances:   "Anticipos",
}

// Generator renders the operator settlement receipt with the core Helvetica font.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(report model.SettlementReport) ([]byte, error) {
	s := report.Settlement

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Liquidación de viaje"), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Folio %s - %s", s.Folio, s.Status)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	info := [][2]string{
		{"Cliente", s.Client},
		{"Operador", report.Operator.FullName()},
		{"Unidad", fmt.Sprintf("%s %s (%s)", report.Unit.Number, report.Unit.Plates, report.Unit.Category)},
		{"Viaje", fmt.Sprintf("%s al %s, llegada %s", formatDate(s.StartDate), formatDate(s.EndDate), formatDate(s.ArrivalDate))},
		{"Kilómetros", formatAmount(s.DistanceKm)},
		{"Rendimiento", fmt.Sprintf("tabulado %s, real %s (%s)", formatAmount(s.TabulatedYield), formatAmount(s.RealYield), s.YieldResult)},
	}
	for _, line := range info {
		labelValue(pdf, g.fontName, tr, line[0], line[1])
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Conceptos"), "", 1, "L", false, 0, "")
	widths := []float64{70, 70, 45}
	drawTableRow(pdf, g.fontName, tr, []string{"Concepto", "Registros", "Importe"}, widths, true)
	for _, category := range model.Categories {
		drawTableRow(pdf, g.fontName, tr, []string{
			categoryTitles[category],
			fmt.Sprintf("%d", len(report.Lines(category))),
			formatAmount(report.LineTotal(category)),
		}, widths, false)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Pago al operador"), "", 1, "L", false, 0, "")
	totals := [][2]string{
		{"Comisión", fmt.Sprintf("%s (%s%%)", formatAmount(s.EffectiveCommissionPaid()), formatAmount(s.CommissionPercentage))},
		{"Diferencia de combustible a favor", formatAmount(s.FuelFavorAmount)},
		{"Ajuste manual", formatAmount(s.ManualAdjustment.Neg())},
		{"Total bruto", formatAmount(s.GrossTotal)},
		{"Anticipos", formatAmount(s.TotalAdvances.Neg())},
		{"Neto a pagar", formatAmount(s.NetPayable)},
	}
	for _, line := range totals {
		labelValue(pdf, g.fontName, tr, line[0], line[1])
	}
	if s.AdjustmentReason != nil && strings.TrimSpace(*s.AdjustmentReason) != "" {
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, tr("Motivo del ajuste: "+*s.AdjustmentReason), "", "L", false)
	}
	if s.NetPayableOverridden && s.NetPayableSuggested.Valid {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("Neto modificado manualmente. Sugerido: %s", formatAmount(s.NetPayableSuggested.Decimal))), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(10)
	signatureBlock(pdf, g.fontName, tr, "Operador", report.Operator.FullName())
	signatureBlock(pdf, g.fontName, tr, "Autorizó", "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func labelValue(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, label, value string) {
	pdf.SetFont(fontName, "B", 10)
	pdf.CellFormat(70, 6, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, tr(safeValue(value)), "", 1, "L", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, label, name string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(name))), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}
