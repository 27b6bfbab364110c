package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// Repository handles store persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, store *models.Store) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// UpdateName renames the store and returns the reloaded row.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Store, error) {
	res := r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteCascade removes the store and everything scoped to it. Join rows go
// first so the pizza_toppings foreign keys never dangle.
func (r *Repository) DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	pizzaIDs := db.Model(&models.Pizza{}).Select("id").Where("store_id = ?", id)
	if err := db.Where("pizza_id IN (?)", pizzaIDs).Delete(&models.PizzaTopping{}).Error; err != nil {
		return 0, fmt.Errorf("delete pizza toppings: %w", err)
	}
	if err := db.Where("store_id = ?", id).Delete(&models.Pizza{}).Error; err != nil {
		return 0, fmt.Errorf("delete pizzas: %w", err)
	}
	if err := db.Where("store_id = ?", id).Delete(&models.Topping{}).Error; err != nil {
		return 0, fmt.Errorf("delete toppings: %w", err)
	}
	if err := db.Where("store_id = ?", id).Delete(&models.StoreMember{}).Error; err != nil {
		return 0, fmt.Errorf("delete members: %w", err)
	}
	res := db.Where("id = ?", id).Delete(&models.Store{})
	return res.RowsAffected, res.Error
}
