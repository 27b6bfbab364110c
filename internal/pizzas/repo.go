package pizzas

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// Repository persists pizzas and their topping join rows.
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

// ListByStore returns the store's pizzas newest first with toppings loaded.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Pizza, error) {
	var rows []models.Pizza
	err := r.db.WithContext(ctx).
		Preload("Toppings.Topping").
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Get(ctx context.Context, storeID, id uuid.UUID) (*models.Pizza, error) {
	var row models.Pizza
	err := r.db.WithContext(ctx).
		Preload("Toppings.Topping").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts the pizza row then one join row per topping.
func (r *Repository) Create(ctx context.Context, p *models.Pizza, toppingIDs []uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Toppings").Create(p).Error; err != nil {
		return err
	}
	return r.insertJoins(db, p.ID, toppingIDs)
}

// Replace renames the pizza and swaps its topping set.
func (r *Repository) Replace(ctx context.Context, storeID, id uuid.UUID, name string, toppingIDs []uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Pizza{}).Where("store_id = ? AND id = ?", storeID, id).
		Updates(map[string]any{"name": name, "name_key": models.MenuNameKey(name)})
	if res.Error != nil || res.RowsAffected == 0 {
		return res.RowsAffected, res.Error
	}
	if err := db.Where("pizza_id = ?", id).Delete(&models.PizzaTopping{}).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, r.insertJoins(db, id, toppingIDs)
}

func (r *Repository) Delete(ctx context.Context, storeID, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.Pizza{}).Select("id").Where("store_id = ? AND id = ?", storeID, id)
	if err := db.Where("pizza_id IN (?)", owned).Delete(&models.PizzaTopping{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("store_id = ? AND id = ?", storeID, id).Delete(&models.Pizza{})
	return res.RowsAffected, res.Error
}

func (r *Repository) insertJoins(db *gorm.DB, pizzaID uuid.UUID, toppingIDs []uuid.UUID) error {
	if len(toppingIDs) == 0 {
		return nil
	}
	joins := make([]models.PizzaTopping, 0, len(toppingIDs))
	for _, id := range toppingIDs {
		joins = append(joins, models.PizzaTopping{PizzaID: pizzaID, ToppingID: id})
	}
	return db.Create(&joins).Error
}
