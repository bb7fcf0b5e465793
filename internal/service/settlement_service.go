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
	"github.com/nurpe/trip-settlements/internal/events"
	"github.com/nurpe/trip-settlements/internal/metrics"
	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/repository"
	"github.com/nurpe/trip-settlements/internal/workflow"
)

type FolioGenerator interface {
	NextFolio() string
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, evt events.StatusChanged) error
}

var maxPercentage = decimal.NewFromInt(100)

type SettlementService struct {
	store  *repository.Store
	folios FolioGenerator
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewSettlementService(store *repository.Store, folios FolioGenerator, publisher EventPublisher, log zerolog.Logger) *SettlementService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &SettlementService{
		store:  store,
		folios: folios,
		events: publisher,
		log:    log,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type CreateSettlementInput struct {
	Folio                string
	Client               string
	UnitID               uuid.UUID
	OperatorID           uuid.UUID
	StartDate            time.Time
	EndDate              time.Time
	ArrivalDate          time.Time
	DistanceKm           decimal.Decimal
	TabulatedYield       decimal.Decimal
	FerryCost            decimal.Decimal
	CommissionPercentage decimal.Decimal
	Principal            model.Principal
}

// UpdateSettlementInput carries a partial update; nil fields are left untouched.
type UpdateSettlementInput struct {
	SettlementID         uuid.UUID
	Client               *string
	UnitID               *uuid.UUID
	OperatorID           *uuid.UUID
	StartDate            *time.Time
	EndDate              *time.Time
	ArrivalDate          *time.Time
	DistanceKm           *decimal.Decimal
	TabulatedYield       *decimal.Decimal
	FerryCost            *decimal.Decimal
	CommissionPercentage *decimal.Decimal
	Principal            model.Principal
}

type AdjustInput struct {
	SettlementID         uuid.UUID
	TabulatedYield       decimal.Decimal
	CommissionPercentage decimal.Decimal
	ManualAdjustment     decimal.Decimal
	Reason               string
	Principal            model.Principal
}

func (s *SettlementService) Create(ctx context.Context, input CreateSettlementInput) (*model.Settlement, error) {
	if !input.Principal.HasRole(model.RoleCapturist, model.RoleSystems) {
		return nil, fmt.Errorf("%w: role %s cannot create settlements", ErrPermissionDenied, input.Principal.Role)
	}

	client := strings.TrimSpace(input.Client)
	if client == "" {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	if input.UnitID == uuid.Nil || input.OperatorID == uuid.Nil {
		return nil, fmt.Errorf("%w: unit_id and operator_id are required", ErrInvalidInput)
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || input.ArrivalDate.IsZero() {
		return nil, fmt.Errorf("%w: trip dates are required", ErrInvalidInput)
	}
	if err := validateTrip(dateOnly(input.StartDate), dateOnly(input.EndDate), input.DistanceKm, input.TabulatedYield, input.FerryCost, input.CommissionPercentage); err != nil {
		return nil, err
	}

	folio := strings.TrimSpace(input.Folio)
	if folio == "" {
		folio = s.folios.NextFolio()
	}

	settlement := &model.Settlement{
		ID:                   uuid.New(),
		Folio:                folio,
		Client:               client,
		UnitID:               input.UnitID,
		OperatorID:           input.OperatorID,
		StartDate:            dateOnly(input.StartDate),
		EndDate:              dateOnly(input.EndDate),
		ArrivalDate:          dateOnly(input.ArrivalDate),
		DistanceKm:           calc.Money(input.DistanceKm),
		TabulatedYield:       calc.Money(input.TabulatedYield),
		FerryCost:            calc.Money(input.FerryCost),
		CommissionPercentage: calc.Money(input.CommissionPercentage),
		YieldResult:          model.YieldNeutral,
		Status:               model.StatusDraft,
		CreatedByUserID:      input.Principal.UserID,
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.References.GetUnit(ctx, input.UnitID); err != nil {
			return notFound(err, "unit")
		}
		if _, err := tx.References.GetOperator(ctx, input.OperatorID); err != nil {
			return notFound(err, "operator")
		}
		return tx.Settlements.Create(ctx, settlement)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("settlement_id", settlement.ID.String()).
		Str("folio", settlement.Folio).
		Str("user_id", input.Principal.UserID.String()).
		Msg("settlement created")
	return settlement, nil
}

func (s *SettlementService) Get(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	settlement, err := s.store.Settlements.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "settlement")
	}
	return settlement, nil
}

// Update changes trip fields of an editable settlement and refreshes its totals.
func (s *SettlementService) Update(ctx context.Context, input UpdateSettlementInput) (*model.Settlement, error) {
	if !input.Principal.HasRole(model.RoleCapturist, model.RoleSystems) {
		return nil, fmt.Errorf("%w: role %s cannot edit settlements", ErrPermissionDenied, input.Principal.Role)
	}
	if input.Client != nil && strings.TrimSpace(*input.Client) == "" {
		return nil, fmt.Errorf("%w: client cannot be empty", ErrInvalidInput)
	}

	started := s.now()
	settlement, err := s.withLockedSettlement(ctx, input.SettlementID, func(tx *repository.Store, settlement *model.Settlement) error {
		if err := workflow.AssertEditable(settlement, input.Principal); err != nil {
			return err
		}

		if input.UnitID != nil && *input.UnitID != settlement.UnitID {
			if _, err := tx.References.GetUnit(ctx, *input.UnitID); err != nil {
				return notFound(err, "unit")
			}
			previous, err := tx.References.GetUnit(ctx, settlement.UnitID)
			if err != nil {
				return notFound(err, "unit")
			}
			// A percentage that only mirrors the old unit's default is re-resolved for the new unit.
			if settlement.CommissionPercentage.Equal(calc.DefaultCommissionPercentage(previous.Category)) {
				settlement.CommissionPercentage = decimal.Zero
			}
			settlement.UnitID = *input.UnitID
		}
		if input.OperatorID != nil && *input.OperatorID != settlement.OperatorID {
			if _, err := tx.References.GetOperator(ctx, *input.OperatorID); err != nil {
				return notFound(err, "operator")
			}
			settlement.OperatorID = *input.OperatorID
		}
		if input.Client != nil {
			settlement.Client = strings.TrimSpace(*input.Client)
		}
		if input.StartDate != nil {
			settlement.StartDate = dateOnly(*input.StartDate)
		}
		if input.EndDate != nil {
			settlement.EndDate = dateOnly(*input.EndDate)
		}
		if input.ArrivalDate != nil {
			settlement.ArrivalDate = dateOnly(*input.ArrivalDate)
		}
		if input.DistanceKm != nil {
			settlement.DistanceKm = calc.Money(*input.DistanceKm)
		}
		if input.TabulatedYield != nil {
			settlement.TabulatedYield = calc.Money(*input.TabulatedYield)
		}
		if input.FerryCost != nil {
			settlement.FerryCost = calc.Money(*input.FerryCost)
		}
		if input.CommissionPercentage != nil {
			settlement.CommissionPercentage = calc.Money(*input.CommissionPercentage)
		}
		if err := validateTrip(settlement.StartDate, settlement.EndDate, settlement.DistanceKm, settlement.TabulatedYield, settlement.FerryCost, settlement.CommissionPercentage); err != nil {
			return err
		}

		settlement.StampEditor(input.Principal.UserID)
		return s.recomputeInTx(ctx, tx, settlement)
	})
	metrics.ObserveRecompute("update", started, err)
	return settlement, err
}

func (s *SettlementService) Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	if !principal.HasRole(model.RoleCapturist, model.RoleSystems) {
		return fmt.Errorf("%w: role %s cannot delete settlements", ErrPermissionDenied, principal.Role)
	}

	_, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		if err := workflow.AssertEditable(settlement, principal); err != nil {
			return err
		}
		return notFound(tx.Settlements.SoftDelete(ctx, settlement.ID, principal.UserID, s.now()), "settlement")
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("settlement_id", id.String()).
		Str("user_id", principal.UserID.String()).
		Msg("settlement deleted")
	return nil
}

// Recompute re-derives every total of the settlement from its child records. A nil actor is
// an internal caller; a user must hold the systems role.
func (s *SettlementService) Recompute(ctx context.Context, id uuid.UUID, actor *model.Principal) (*model.Settlement, error) {
	if actor != nil && !actor.IsSystems() {
		return nil, fmt.Errorf("%w: role %s cannot recompute settlements", ErrPermissionDenied, actor.Role)
	}

	started := s.now()
	settlement, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		if actor != nil {
			settlement.StampEditor(actor.UserID)
		}
		return s.recomputeInTx(ctx, tx, settlement)
	})
	metrics.ObserveRecompute("manual", started, err)
	return settlement, err
}

// PromoteFromDraftIfNeeded moves a draft settlement into review. Any other status is left alone.
func (s *SettlementService) PromoteFromDraftIfNeeded(ctx context.Context, id uuid.UUID, actor *model.Principal) error {
	_, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		if !promoteIfDraft(settlement, actor) {
			return nil
		}
		return tx.Settlements.Save(ctx, settlement)
	})
	return err
}

func (s *SettlementService) TransitionState(ctx context.Context, id uuid.UUID, target model.Status, principal model.Principal) (*model.Settlement, error) {
	var from model.Status
	settlement, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		from = settlement.Status
		if err := workflow.Transition(settlement, target, principal, s.now()); err != nil {
			return err
		}
		return tx.Settlements.Save(ctx, settlement)
	})
	metrics.ObserveTransition(string(target), err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("settlement_id", settlement.ID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("user_id", principal.UserID.String()).
		Msg("settlement status changed")

	// The transition is committed; a broker failure only costs the notification.
	pubErr := s.events.PublishStatusChanged(ctx, events.StatusChanged{
		SettlementID: settlement.ID,
		Folio:        settlement.Folio,
		From:         string(from),
		To:           string(target),
		ActorID:      principal.UserID,
		ActorRole:    string(principal.Role),
		NetPayable:   settlement.NetPayable.StringFixed(2),
		OccurredAt:   s.now(),
	})
	metrics.ObserveEventPublish(pubErr)
	if pubErr != nil {
		s.log.Error().Err(pubErr).Str("settlement_id", settlement.ID.String()).Msg("status change event not published")
	}
	return settlement, nil
}

// Adjust sets the yield, commission percentage and manual adjustment of an approved settlement.
func (s *SettlementService) Adjust(ctx context.Context, input AdjustInput) (*model.Settlement, error) {
	if input.TabulatedYield.IsNegative() {
		return nil, fmt.Errorf("%w: tabulated_yield cannot be negative", ErrInvalidInput)
	}
	if err := validatePercentage(input.CommissionPercentage); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if !input.ManualAdjustment.IsZero() && reason == "" {
		return nil, fmt.Errorf("%w: reason is required for a manual adjustment", ErrInvalidInput)
	}

	started := s.now()
	settlement, err := s.withLockedSettlement(ctx, input.SettlementID, func(tx *repository.Store, settlement *model.Settlement) error {
		if err := workflow.AssertCanAdjust(settlement, input.Principal); err != nil {
			return err
		}

		settlement.TabulatedYield = calc.Money(input.TabulatedYield)
		settlement.CommissionPercentage = calc.Money(input.CommissionPercentage)
		settlement.ManualAdjustment = calc.Money(input.ManualAdjustment)
		settlement.AdjustmentReason = nil
		if reason != "" {
			settlement.AdjustmentReason = &reason
		}
		settlement.StampEditor(input.Principal.UserID)
		return s.recomputeInTx(ctx, tx, settlement)
	})
	metrics.ObserveRecompute("adjust", started, err)
	metrics.ObserveOverride("adjustment", err)
	return settlement, err
}

// OverrideNetPayable pins the net payable to a manual amount. The first override keeps the
// computed amount as the suggestion; profit is derived from the new amount right away.
func (s *SettlementService) OverrideNetPayable(ctx context.Context, id uuid.UUID, amount decimal.Decimal, principal model.Principal) (*model.Settlement, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: net_payable cannot be negative", ErrInvalidInput)
	}

	settlement, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		if err := workflow.AssertCanOverrideTotal(settlement, principal); err != nil {
			return err
		}

		if !settlement.NetPayableSuggested.Valid {
			settlement.NetPayableSuggested = decimal.NewNullDecimal(settlement.NetPayable)
		}
		settlement.NetPayable = calc.Money(amount)
		settlement.NetPayableOverridden = true
		settlement.TripProfit = calc.Money(calc.Profit(profitInput(settlement), settlement.NetPayable))

		now := s.now()
		userID := principal.UserID
		settlement.TotalModifiedByUserID = &userID
		settlement.TotalModifiedAt = &now
		return tx.Settlements.Save(ctx, settlement)
	})
	metrics.ObserveOverride("net_payable", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("settlement_id", settlement.ID.String()).
		Str("net_payable", settlement.NetPayable.StringFixed(2)).
		Str("suggested", settlement.NetPayableSuggested.Decimal.StringFixed(2)).
		Str("user_id", principal.UserID.String()).
		Msg("net payable overridden")
	return settlement, nil
}

// OverrideCommissionPaid sets the commission actually paid, or clears it with nil so the
// estimate applies again.
func (s *SettlementService) OverrideCommissionPaid(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, principal model.Principal) (*model.Settlement, error) {
	if amount != nil && amount.IsNegative() {
		return nil, fmt.Errorf("%w: commission_paid cannot be negative", ErrInvalidInput)
	}

	started := s.now()
	settlement, err := s.withLockedSettlement(ctx, id, func(tx *repository.Store, settlement *model.Settlement) error {
		if err := workflow.AssertCanOverrideTotal(settlement, principal); err != nil {
			return err
		}

		settlement.CommissionPaid = decimal.NullDecimal{}
		if amount != nil {
			settlement.CommissionPaid = decimal.NewNullDecimal(calc.Money(*amount))
		}

		now := s.now()
		userID := principal.UserID
		settlement.CommissionModifiedByUserID = &userID
		settlement.CommissionModifiedAt = &now
		settlement.StampEditor(userID)
		return s.recomputeInTx(ctx, tx, settlement)
	})
	metrics.ObserveRecompute("commission", started, err)
	metrics.ObserveOverride("commission_paid", err)
	return settlement, err
}

// withLockedSettlement runs fn in a transaction holding the settlement row lock and returns
// the settlement as fn left it.
func (s *SettlementService) withLockedSettlement(
	ctx context.Context,
	id uuid.UUID,
	fn func(tx *repository.Store, settlement *model.Settlement) error,
) (*model.Settlement, error) {
	var result *model.Settlement
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		settlement, err := tx.Settlements.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "settlement")
		}
		if err := fn(tx, settlement); err != nil {
			return err
		}
		result = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockEditable loads and locks a settlement inside tx for a child record write.
func (s *SettlementService) lockEditable(ctx context.Context, tx *repository.Store, id uuid.UUID, principal model.Principal) (*model.Settlement, error) {
	settlement, err := tx.Settlements.GetForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, "settlement")
	}
	if err := workflow.AssertEditable(settlement, principal); err != nil {
		return nil, err
	}
	return settlement, nil
}

// afterChildChange refreshes totals after a child write and moves a draft into review.
func (s *SettlementService) afterChildChange(ctx context.Context, tx *repository.Store, settlement *model.Settlement, principal model.Principal) error {
	promoteIfDraft(settlement, &principal)
	settlement.StampEditor(principal.UserID)
	return s.recomputeInTx(ctx, tx, settlement)
}

// recomputeInTx aggregates the children through tx, derives the totals and saves the settlement.
func (s *SettlementService) recomputeInTx(ctx context.Context, tx *repository.Store, settlement *model.Settlement) error {
	sums, err := Aggregate(ctx, tx.Expenses, settlement.ID)
	if err != nil {
		return err
	}
	unit, err := tx.References.GetUnit(ctx, settlement.UnitID)
	if err != nil {
		return notFound(err, "unit")
	}

	applyTotals(settlement, sums, unit.Category)
	return tx.Settlements.Save(ctx, settlement)
}

// applyTotals runs the fuel, commission and totals calculations over the sums and writes
// the rounded results to the settlement.
func applyTotals(settlement *model.Settlement, sums Sums, unitCategory string) {
	fuel := calc.EvaluateFuel(calc.FuelInput{
		DistanceKm:     settlement.DistanceKm,
		TabulatedYield: settlement.TabulatedYield,
		Liters:         sums.FuelLiters,
		Amount:         sums.Fuel,
	})

	commission := calc.Commission(calc.CommissionInput{
		FreightRevenue:   sums.Freight,
		FuelCost:         sums.Fuel,
		FerryCost:        settlement.FerryCost,
		StoredPercentage: settlement.CommissionPercentage,
		UnitCategory:     unitCategory,
		PaidOverride:     settlement.CommissionPaid,
	})

	totals := calc.Totals(calc.TotalsInput{
		CommissionPaid:   commission.Paid,
		FuelFavorAmount:  fuel.FavorAmount,
		ManualAdjustment: settlement.ManualAdjustment,
		Advances:         sums.Advances,
		NetOverridden:    settlement.NetPayableOverridden,
		StoredNetPayable: settlement.NetPayable,
		Profit: calc.ProfitInput{
			FreightRevenue: sums.Freight,
			FuelCost:       sums.Fuel,
			FerryCost:      settlement.FerryCost,
			Tolls:          sums.Tolls,
			Misc:           sums.Misc,
			Deductions:     sums.Deductions,
		},
	})

	settlement.TotalFuel = calc.Money(sums.Fuel)
	settlement.TotalFuelLiters = calc.Money(sums.FuelLiters)
	settlement.TotalTolls = calc.Money(sums.Tolls)
	settlement.TotalMisc = calc.Money(sums.Misc)
	settlement.TotalFreight = calc.Money(sums.Freight)
	settlement.TotalDeductions = calc.Money(sums.Deductions)
	settlement.TotalAdvances = calc.Money(sums.Advances)

	settlement.RealYield = fuel.RealYield
	settlement.FuelFavorAmount = calc.Money(fuel.FavorAmount)
	settlement.FuelAgainstAmount = calc.Money(fuel.AgainstAmount)
	settlement.YieldResult = fuel.Result

	settlement.CommissionPercentage = calc.Money(commission.Percentage)
	settlement.CommissionEstimated = calc.Money(commission.Estimated)

	settlement.GrossTotal = calc.Money(totals.Gross)
	settlement.NetPayable = calc.Money(totals.NetPayable)
	settlement.TripProfit = calc.Money(totals.Profit)
}

// profitInput rebuilds the profit terms from the totals already stored on the settlement.
func profitInput(settlement *model.Settlement) calc.ProfitInput {
	return calc.ProfitInput{
		FreightRevenue: settlement.TotalFreight,
		FuelCost:       settlement.TotalFuel,
		FerryCost:      settlement.FerryCost,
		Tolls:          settlement.TotalTolls,
		Misc:           settlement.TotalMisc,
		Deductions:     settlement.TotalDeductions,
	}
}

func promoteIfDraft(settlement *model.Settlement, actor *model.Principal) bool {
	if settlement.Status != model.StatusDraft {
		return false
	}
	settlement.Status = model.StatusInReview
	if actor != nil {
		settlement.StampEditor(actor.UserID)
	}
	return true
}

func validateTrip(start, end time.Time, distance, yield, ferry, percentage decimal.Decimal) error {
	if start.After(end) {
		return fmt.Errorf("%w: start_date must be before or equal to end_date", ErrInvalidInput)
	}
	if distance.IsNegative() {
		return fmt.Errorf("%w: distance_km cannot be negative", ErrInvalidInput)
	}
	if yield.IsNegative() {
		return fmt.Errorf("%w: tabulated_yield cannot be negative", ErrInvalidInput)
	}
	if ferry.IsNegative() {
		return fmt.Errorf("%w: ferry_cost cannot be negative", ErrInvalidInput)
	}
	return validatePercentage(percentage)
}

func validatePercentage(percentage decimal.Decimal) error {
	if percentage.IsNegative() || percentage.GreaterThan(maxPercentage) {
		return fmt.Errorf("%w: commission_percentage must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
