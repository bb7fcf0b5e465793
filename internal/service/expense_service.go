package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/trip-settlements/internal/calc"
	"github.com/nurpe/trip-settlements/internal/metrics"
	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/repository"
)

// ExpenseService writes the child records of a settlement. Every write runs in the same
// transaction as the settlement refresh it triggers.
type ExpenseService struct {
	store       *repository.Store
	settlements *SettlementService
	log         zerolog.Logger
}

func NewExpenseService(store *repository.Store, settlements *SettlementService, log zerolog.Logger) *ExpenseService {
	return &ExpenseService{store: store, settlements: settlements, log: log}
}

type ExpenseInput struct {
	SettlementID uuid.UUID
	Category     model.Category
	Amount       decimal.Decimal
	Liters       decimal.Decimal
	Concept      string
	Principal    model.Principal
}

type ExpenseUpdateInput struct {
	ExpenseID uuid.UUID
	Category  model.Category
	Amount    decimal.Decimal
	Liters    decimal.Decimal
	Concept   string
	Principal model.Principal
}

// ExpenseResult is the written record together with the refreshed settlement.
type ExpenseResult struct {
	Expense    *model.Expense
	Settlement *model.Settlement
}

var expenseWriters = []model.Role{model.RoleCapturist, model.RoleDirector, model.RoleAdmin, model.RoleSystems}

func (s *ExpenseService) Create(ctx context.Context, input ExpenseInput) (*ExpenseResult, error) {
	if err := validateExpense(input.Category, input.Amount, input.Liters, input.Principal); err != nil {
		return nil, err
	}

	expense := &model.Expense{
		ID:              uuid.New(),
		SettlementID:    input.SettlementID,
		Category:        input.Category,
		Amount:          calc.Money(input.Amount),
		Concept:         strings.TrimSpace(input.Concept),
		CreatedByUserID: input.Principal.UserID,
	}
	setVolume(expense, input.Liters)

	started := s.settlements.now()
	var settlement *model.Settlement
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		locked, err := s.settlements.lockEditable(ctx, tx, input.SettlementID, input.Principal)
		if err != nil {
			return err
		}
		if err := tx.Expenses.Create(ctx, expense); err != nil {
			return err
		}
		settlement = locked
		return s.settlements.afterChildChange(ctx, tx, locked, input.Principal)
	})
	s.observe(input.Category, "create", started, err)
	if err != nil {
		return nil, err
	}
	return &ExpenseResult{Expense: expense, Settlement: settlement}, nil
}

func (s *ExpenseService) Update(ctx context.Context, input ExpenseUpdateInput) (*ExpenseResult, error) {
	if err := validateExpense(input.Category, input.Amount, input.Liters, input.Principal); err != nil {
		return nil, err
	}

	started := s.settlements.now()
	var (
		expense    *model.Expense
		settlement *model.Settlement
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Expenses.Get(ctx, input.Category, input.ExpenseID)
		if err != nil {
			return notFound(err, fmt.Sprintf("%s record", input.Category))
		}
		locked, err := s.settlements.lockEditable(ctx, tx, current.SettlementID, input.Principal)
		if err != nil {
			return err
		}

		current.Amount = calc.Money(input.Amount)
		current.Concept = strings.TrimSpace(input.Concept)
		setVolume(current, input.Liters)
		if err := tx.Expenses.Update(ctx, current, s.settlements.now()); err != nil {
			return notFound(err, fmt.Sprintf("%s record", input.Category))
		}

		expense = current
		settlement = locked
		return s.settlements.afterChildChange(ctx, tx, locked, input.Principal)
	})
	s.observe(input.Category, "update", started, err)
	if err != nil {
		return nil, err
	}
	return &ExpenseResult{Expense: expense, Settlement: settlement}, nil
}

func (s *ExpenseService) Delete(ctx context.Context, category model.Category, id uuid.UUID, principal model.Principal) (*model.Settlement, error) {
	if !principal.HasRole(expenseWriters...) {
		return nil, fmt.Errorf("%w: role %s cannot change settlement records", ErrPermissionDenied, principal.Role)
	}
	if category.Table() == "" {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}

	started := s.settlements.now()
	var settlement *model.Settlement
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Expenses.Get(ctx, category, id)
		if err != nil {
			return notFound(err, fmt.Sprintf("%s record", category))
		}
		locked, err := s.settlements.lockEditable(ctx, tx, current.SettlementID, principal)
		if err != nil {
			return err
		}
		if err := tx.Expenses.Delete(ctx, category, id); err != nil {
			return notFound(err, fmt.Sprintf("%s record", category))
		}
		settlement = locked
		return s.settlements.afterChildChange(ctx, tx, locked, principal)
	})
	s.observe(category, "delete", started, err)
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *ExpenseService) List(ctx context.Context, settlementID uuid.UUID, category model.Category) ([]model.Expense, error) {
	if category.Table() == "" {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	if _, err := s.store.Settlements.Get(ctx, settlementID); err != nil {
		return nil, notFound(err, "settlement")
	}
	return s.store.Expenses.ListBySettlement(ctx, category, settlementID)
}

func (s *ExpenseService) observe(category model.Category, op string, started time.Time, err error) {
	metrics.ObserveExpenseWrite(string(category), op, err)
	metrics.ObserveRecompute("expense", started, err)
	if err != nil {
		s.log.Debug().Err(err).Str("category", string(category)).Str("op", op).Msg("settlement record write rejected")
	}
}

func validateExpense(category model.Category, amount, liters decimal.Decimal, principal model.Principal) error {
	if !principal.HasRole(expenseWriters...) {
		return fmt.Errorf("%w: role %s cannot change settlement records", ErrPermissionDenied, principal.Role)
	}
	if category.Table() == "" {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	if liters.IsNegative() {
		return fmt.Errorf("%w: liters cannot be negative", ErrInvalidInput)
	}
	if !category.HasVolume() && !liters.IsZero() {
		return fmt.Errorf("%w: only fuel records carry liters", ErrInvalidInput)
	}
	return nil
}

// setVolume fills liters and the derived price per liter on fuel rows.
func setVolume(expense *model.Expense, liters decimal.Decimal) {
	if !expense.Category.HasVolume() {
		return
	}
	expense.Liters = calc.Money(liters)
	expense.PricePerLiter = decimal.Zero
	if liters.IsPositive() {
		expense.PricePerLiter = calc.Money(expense.Amount.Div(liters))
	}
}
