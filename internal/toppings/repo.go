package toppings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// Repository persists store toppings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByStore returns the store's toppings ordered by name.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Topping, error) {
	var rows []models.Topping
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("name_key ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Get(ctx context.Context, storeID, id uuid.UUID) (*models.Topping, error) {
	var row models.Topping
	if err := r.db.WithContext(ctx).Where("store_id = ? AND id = ?", storeID, id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountInStore counts how many of ids belong to storeID.
func (r *Repository) CountInStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Topping{}).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, t *models.Topping) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) Rename(ctx context.Context, storeID, id uuid.UUID, name string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Topping{}).
		Where("store_id = ? AND id = ?", storeID, id).
		Updates(map[string]any{"name": name, "name_key": models.MenuNameKey(name)})
	return res.RowsAffected, res.Error
}

// Delete removes the topping and detaches it from every pizza.
func (r *Repository) Delete(ctx context.Context, storeID, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("topping_id = ?", id).Delete(&models.PizzaTopping{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("store_id = ? AND id = ?", storeID, id).Delete(&models.Topping{})
	return res.RowsAffected, res.Error
}
