package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/repository"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

type ReportGenerator interface {
	Generate(report model.SettlementReport) ([]byte, error)
}

type ExportService struct {
	store *repository.Store
	excel ReportGenerator
	pdf   ReportGenerator
}

type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

func NewExportService(store *repository.Store, excel, pdf ReportGenerator) *ExportService {
	return &ExportService{
		store: store,
		excel: excel,
		pdf:   pdf,
	}
}

func (s *ExportService) Workbook(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	return s.export(ctx, id, s.excel, "xlsx", ContentTypeXLSX)
}

func (s *ExportService) Receipt(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	return s.export(ctx, id, s.pdf, "pdf", ContentTypePDF)
}

func (s *ExportService) export(ctx context.Context, id uuid.UUID, generator ReportGenerator, ext, contentType string) (*ExportResult, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := generator.Generate(*report)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		FileName:    buildFileName(report.Settlement, ext),
		ContentType: contentType,
		Content:     content,
	}, nil
}

// loadReport reads the settlement and its children from one snapshot.
func (s *ExportService) loadReport(ctx context.Context, id uuid.UUID) (*model.SettlementReport, error) {
	var report *model.SettlementReport
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		settlement, err := tx.Settlements.Get(ctx, id)
		if err != nil {
			return notFound(err, "settlement")
		}
		unit, err := tx.References.GetUnit(ctx, settlement.UnitID)
		if err != nil {
			return notFound(err, "unit")
		}
		operator, err := tx.References.GetOperator(ctx, settlement.OperatorID)
		if err != nil {
			return notFound(err, "operator")
		}

		expenses := make(map[model.Category][]model.Expense, len(model.Categories))
		for _, category := range model.Categories {
			rows, err := tx.Expenses.ListBySettlement(ctx, category, settlement.ID)
			if err != nil {
				return err
			}
			expenses[category] = rows
		}

		report = &model.SettlementReport{
			Settlement: *settlement,
			Unit:       *unit,
			Operator:   *operator,
			Expenses:   expenses,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func buildFileName(settlement model.Settlement, ext string) string {
	folio := sanitizeFileName(settlement.Folio)
	if folio == "" {
		folio = settlement.ID.String()
	}
	return fmt.Sprintf("settlement-%s-%s.%s", folio, settlement.EndDate.Format("20060102"), ext)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
