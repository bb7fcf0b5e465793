package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/repository"
)

// SumReader reads per-category totals. Bind it to a transaction to get one snapshot.
type SumReader interface {
	SettlementExists(ctx context.Context, settlementID uuid.UUID) (bool, error)
	Sum(ctx context.Context, category model.Category, settlementID uuid.UUID) (repository.CategorySum, error)
}

// Sums holds the child totals of one settlement. Every field is zero when its table has no rows.
type Sums struct {
	Fuel       decimal.Decimal
	FuelLiters decimal.Decimal
	Tolls      decimal.Decimal
	Misc       decimal.Decimal
	Freight    decimal.Decimal
	Deductions decimal.Decimal
	Advances   decimal.Decimal
}

func (s *Sums) add(category model.Category, sum repository.CategorySum) {
	switch category {
	case model.CategoryFuel:
		s.Fuel = s.Fuel.Add(sum.Amount)
		s.FuelLiters = s.FuelLiters.Add(sum.Liters)
	case model.CategoryTolls:
		s.Tolls = s.Tolls.Add(sum.Amount)
	case model.CategoryMisc:
		s.Misc = s.Misc.Add(sum.Amount)
	case model.CategoryFreight:
		s.Freight = s.Freight.Add(sum.Amount)
	case model.CategoryDeductions:
		s.Deductions = s.Deductions.Add(sum.Amount)
	case model.CategoryAdvances:
		s.Advances = s.Advances.Add(sum.Amount)
	}
}

// Aggregate sums every child category of a settlement, one read per category.
func Aggregate(ctx context.Context, reader SumReader, settlementID uuid.UUID) (Sums, error) {
	exists, err := reader.SettlementExists(ctx, settlementID)
	if err != nil {
		return Sums{}, err
	}
	if !exists {
		return Sums{}, fmt.Errorf("%w: settlement %s", ErrNotFound, settlementID)
	}

	results := make([]repository.CategorySum, len(model.Categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range model.Categories {
		g.Go(func() error {
			sum, err := reader.Sum(gctx, category, settlementID)
			if err != nil {
				return fmt.Errorf("sum %s: %w", category, err)
			}
			results[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Sums{}, err
	}

	sums := Sums{
		Fuel:       decimal.Zero,
		FuelLiters: decimal.Zero,
		Tolls:      decimal.Zero,
		Misc:       decimal.Zero,
		Freight:    decimal.Zero,
		Deductions: decimal.Zero,
		Advances:   decimal.Zero,
	}
	for i, category := range model.Categories {
		sums.add(category, results[i])
	}
	return sums, nil
}
