package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/trip-settlements/internal/model"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'settlement_status') THEN
			CREATE TYPE settlement_status AS ENUM ('DRAFT', 'IN_REVIEW', 'APPROVED', 'PAID', 'CANCELLED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS units (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		number VARCHAR(100) NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		plates VARCHAR(100) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS operators (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS settlements (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		folio VARCHAR(120) NOT NULL,
		client VARCHAR(120) NOT NULL,
		unit_id UUID NOT NULL REFERENCES units(id),
		operator_id UUID NOT NULL REFERENCES operators(id),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		arrival_date DATE NOT NULL,
		distance_km NUMERIC(12,2) NOT NULL DEFAULT 0,
		tabulated_yield NUMERIC(12,2) NOT NULL DEFAULT 0,
		real_yield NUMERIC(12,2) NOT NULL DEFAULT 0,
		fuel_favor_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		fuel_against_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		yield_result VARCHAR(16) NOT NULL DEFAULT 'NEUTRO',
		total_fuel NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_fuel_liters NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_tolls NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_misc NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_freight NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_deductions NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_advances NUMERIC(12,2) NOT NULL DEFAULT 0,
		ferry_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
		commission_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		commission_estimated NUMERIC(12,2) NOT NULL DEFAULT 0,
		commission_paid NUMERIC(12,2),
		manual_adjustment NUMERIC(12,2) NOT NULL DEFAULT 0,
		adjustment_reason TEXT,
		gross_total NUMERIC(12,2) NOT NULL DEFAULT 0,
		net_payable NUMERIC(12,2) NOT NULL DEFAULT 0,
		net_payable_suggested NUMERIC(12,2),
		net_payable_overridden BOOLEAN NOT NULL DEFAULT FALSE,
		trip_profit NUMERIC(12,2) NOT NULL DEFAULT 0,
		status settlement_status NOT NULL DEFAULT 'DRAFT',
		created_by_user_id UUID NOT NULL,
		edited_by_user_id UUID,
		approved_by_user_id UUID,
		paid_by_user_id UUID,
		paid_at TIMESTAMPTZ,
		commission_modified_by_user_id UUID,
		commission_modified_at TIMESTAMPTZ,
		total_modified_by_user_id UUID,
		total_modified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_settlements_folio ON settlements (folio) WHERE deleted_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_status ON settlements (status) WHERE deleted_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_unit_id ON settlements (unit_id);`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_operator_id ON settlements (operator_id);`,
	`CREATE TABLE IF NOT EXISTS fuel_expenses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL,
		liters NUMERIC(10,2) NOT NULL DEFAULT 0,
		price_per_liter NUMERIC(10,2) NOT NULL DEFAULT 0,
		concept VARCHAR(255) NOT NULL DEFAULT '',
		created_by_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

// childTableStatements creates the remaining child tables. They share one layout without
// the fuel volume columns.
func childTableStatements() []string {
	var statements []string
	for _, category := range model.Categories {
		if !category.HasVolume() {
			statements = append(statements, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL,
		concept VARCHAR(255) NOT NULL DEFAULT '',
		created_by_user_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`, category.Table()))
		}
		statements = append(statements, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%[1]s_settlement_id ON %[1]s (settlement_id);`, category.Table()))
	}
	return statements
}

func runMigrations(db *gorm.DB) error {
	statements := append(append([]string{}, migrationStatements...), childTableStatements()...)
	for i, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
