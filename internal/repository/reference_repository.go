package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/trip-settlements/internal/model"
)

// ReferenceRepository reads the fleet catalog tables. They are owned by other services.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) GetUnit(ctx context.Context, id uuid.UUID) (*model.Unit, error) {
	var unit model.Unit
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, number, category, plates
		FROM units
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&unit).Error; err != nil {
		return nil, err
	}
	if unit.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &unit, nil
}

func (r *ReferenceRepository) GetOperator(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var operator model.Operator
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, first_name, last_name
		FROM operators
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&operator).Error; err != nil {
		return nil, err
	}
	if operator.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &operator, nil
}
