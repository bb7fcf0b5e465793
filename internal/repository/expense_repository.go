package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/trip-settlements/internal/model"
)

// CategorySum is the total of one child table for a settlement. Liters is zero for every
// category except fuel.
type CategorySum struct {
	Amount decimal.Decimal
	Liters decimal.Decimal
}

type ExpenseRepository struct {
	db *gorm.DB
	// mu is set when db is a transaction: a transaction owns one connection, so
	// concurrent reads through it have to take turns.
	mu *sync.Mutex
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) table(ctx context.Context, category model.Category) *gorm.DB {
	return r.db.WithContext(ctx).Table(category.Table())
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	query := r.table(ctx, expense.Category)
	if !expense.Category.HasVolume() {
		query = query.Omit("Liters", "PricePerLiter")
	}
	return query.Create(expense).Error
}

func (r *ExpenseRepository) Get(ctx context.Context, category model.Category, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := r.table(ctx, category).Where("id = ?", id).Take(&expense).Error; err != nil {
		return nil, err
	}
	expense.Category = category
	return &expense, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, expense *model.Expense, at time.Time) error {
	values := map[string]interface{}{
		"amount":     expense.Amount,
		"concept":    expense.Concept,
		"updated_at": at,
	}
	if expense.Category.HasVolume() {
		values["liters"] = expense.Liters
		values["price_per_liter"] = expense.PricePerLiter
	}

	result := r.table(ctx, expense.Category).Where("id = ?", expense.ID).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	expense.UpdatedAt = at
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, category model.Category, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, category.Table()),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ExpenseRepository) ListBySettlement(ctx context.Context, category model.Category, settlementID uuid.UUID) ([]model.Expense, error) {
	var rows []model.Expense
	err := r.table(ctx, category).
		Where("settlement_id = ?", settlementID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Category = category
	}
	return rows, nil
}

func (r *ExpenseRepository) SettlementExists(ctx context.Context, settlementID uuid.UUID) (bool, error) {
	r.lock()
	defer r.unlock()

	var count int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(1)
		FROM settlements
		WHERE id = ? AND deleted_at IS NULL
	`, settlementID).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Sum totals one category for a settlement. Empty categories sum to zero.
func (r *ExpenseRepository) Sum(ctx context.Context, category model.Category, settlementID uuid.UUID) (CategorySum, error) {
	r.lock()
	defer r.unlock()

	litersExpr := "0"
	if category.HasVolume() {
		litersExpr = "COALESCE(SUM(liters), 0)"
	}

	var row CategorySum
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT
			COALESCE(SUM(amount), 0) AS amount,
			%s AS liters
		FROM %s
		WHERE settlement_id = ?
	`, litersExpr, category.Table()), settlementID).Scan(&row).Error
	if err != nil {
		return CategorySum{}, err
	}
	return row, nil
}

func (r *ExpenseRepository) lock() {
	if r.mu != nil {
		r.mu.Lock()
	}
}

func (r *ExpenseRepository) unlock() {
	if r.mu != nil {
		r.mu.Unlock()
	}
}
