package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusInReview  Status = "IN_REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []Status{StatusDraft, StatusInReview, StatusApproved, StatusPaid, StatusCancelled}

func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range Statuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// YieldResult classifies actual fuel consumption against the tabulated yield.
type YieldResult string

const (
	YieldFavor   YieldResult = "FAVOR"
	YieldContra  YieldResult = "CONTRA"
	YieldNeutral YieldResult = "NEUTRO"
)

type Settlement struct {
	ID          uuid.UUID `gorm:"primaryKey" json:"id"`
	Folio       string    `gorm:"size:120;not null" json:"folio"`
	Client      string    `gorm:"size:120;not null" json:"client"`
	UnitID      uuid.UUID `gorm:"not null;index" json:"unit_id"`
	OperatorID  uuid.UUID `gorm:"not null;index" json:"operator_id"`
	StartDate   time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null" json:"end_date"`
	ArrivalDate time.Time `gorm:"type:date;not null" json:"arrival_date"`

	DistanceKm        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"distance_km"`
	TabulatedYield    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tabulated_yield"`
	RealYield         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"real_yield"`
	FuelFavorAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fuel_favor_amount"`
	FuelAgainstAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fuel_against_amount"`
	YieldResult       YieldResult     `gorm:"size:16;not null" json:"yield_result"`

	TotalFuel       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_fuel"`
	TotalFuelLiters decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_fuel_liters"`
	TotalTolls      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_tolls"`
	TotalMisc       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_misc"`
	TotalFreight    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_freight"`
	TotalDeductions decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_deductions"`
	TotalAdvances   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_advances"`
	FerryCost       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"ferry_cost"`

	CommissionPercentage decimal.Decimal     `gorm:"type:numeric(5,2);not null" json:"commission_percentage"`
	CommissionEstimated  decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"commission_estimated"`
	CommissionPaid       decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"commission_paid"`
	ManualAdjustment     decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"manual_adjustment"`
	AdjustmentReason     *string             `gorm:"type:text" json:"adjustment_reason"`

	GrossTotal           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"gross_total"`
	NetPayable           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"net_payable"`
	NetPayableSuggested  decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"net_payable_suggested"`
	NetPayableOverridden bool                `gorm:"not null" json:"net_payable_overridden"`
	TripProfit           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"trip_profit"`

	Status Status `gorm:"size:16;not null;index" json:"status"`

	CreatedByUserID            uuid.UUID  `gorm:"not null" json:"created_by_user_id"`
	EditedByUserID             *uuid.UUID `json:"edited_by_user_id"`
	ApprovedByUserID           *uuid.UUID `json:"approved_by_user_id"`
	PaidByUserID               *uuid.UUID `json:"paid_by_user_id"`
	PaidAt                     *time.Time `json:"paid_at"`
	CommissionModifiedByUserID *uuid.UUID `json:"commission_modified_by_user_id"`
	CommissionModifiedAt       *time.Time `json:"commission_modified_at"`
	TotalModifiedByUserID      *uuid.UUID `json:"total_modified_by_user_id"`
	TotalModifiedAt            *time.Time `json:"total_modified_at"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (Settlement) TableName() string {
	return "settlements"
}

// StampEditor records the user behind the latest change.
func (s *Settlement) StampEditor(userID uuid.UUID) {
	id := userID
	s.EditedByUserID = &id
}

// EffectiveCommissionPaid is the manual commission when one is set, the estimate otherwise.
func (s Settlement) EffectiveCommissionPaid() decimal.Decimal {
	if s.CommissionPaid.Valid {
		return s.CommissionPaid.Decimal
	}
	return s.CommissionEstimated
}
