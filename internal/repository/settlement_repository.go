package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/trip-settlements/internal/model"
)

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) Get(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	var settlement model.Settlement
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&settlement).Error
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// GetForUpdate loads the settlement and holds its row lock until the surrounding
// transaction ends. Outside a transaction it behaves like Get.
func (r *SettlementRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	var settlement model.Settlement
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&settlement).Error
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *SettlementRepository) Create(ctx context.Context, settlement *model.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

// Save writes every column of the settlement, zero values included.
func (r *SettlementRepository) Save(ctx context.Context, settlement *model.Settlement) error {
	return r.db.WithContext(ctx).Save(settlement).Error
}

func (r *SettlementRepository) SoftDelete(ctx context.Context, id, editorID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE settlements
		SET
			deleted_at = ?,
			edited_by_user_id = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, at, editorID, at, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
