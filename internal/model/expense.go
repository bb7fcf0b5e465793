package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category identifies one of the child record tables owned by a settlement.
type Category string

const (
	CategoryFuel       Category = "fuel"
	CategoryTolls      Category = "tolls"
	CategoryMisc       Category = "misc"
	CategoryFreight    Category = "freight"
	CategoryDeductions Category = "deductions"
	CategoryAdvances   Category = "advances"
)

var Categories = []Category{
	CategoryFuel,
	CategoryTolls,
	CategoryMisc,
	CategoryFreight,
	CategoryDeductions,
	CategoryAdvances,
}

var categoryTables = map[Category]string{
	CategoryFuel:       "fuel_expenses",
	CategoryTolls:      "toll_expenses",
	CategoryMisc:       "misc_expenses",
	CategoryFreight:    "freight_charges",
	CategoryDeductions: "freight_deductions",
	CategoryAdvances:   "advances",
}

func ParseCategory(raw string) (Category, bool) {
	category := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := categoryTables[category]
	return category, ok
}

func (c Category) Table() string {
	return categoryTables[c]
}

// HasVolume reports whether rows of this category carry liters.
func (c Category) HasVolume() bool {
	return c == CategoryFuel
}

type Expense struct {
	ID              uuid.UUID       `gorm:"primaryKey" json:"id"`
	SettlementID    uuid.UUID       `gorm:"not null;index" json:"settlement_id"`
	Category        Category        `gorm:"-" json:"category"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Liters          decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"liters"`
	PricePerLiter   decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price_per_liter"`
	Concept         string          `gorm:"size:255" json:"concept"`
	CreatedByUserID uuid.UUID       `gorm:"not null" json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
