package uniqueness

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// Repository implements Lookup over GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes lookups to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByName(ctx context.Context, kind enums.MenuItemKind, storeID uuid.UUID, name string, excludeID *uuid.UUID) ([]NamedRecord, error) {
	var model any
	switch kind {
	case enums.MenuItemTopping:
		model = &models.Topping{}
	case enums.MenuItemPizza:
		model = &models.Pizza{}
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}

	query := r.db.WithContext(ctx).
		Model(model).
		Select("id", "name").
		Where("store_id = ?", storeID).
		Where("name_key = ?", models.MenuNameKey(name))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var rows []NamedRecord
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ToppingSets(ctx context.Context, storeID uuid.UUID, excludePizzaID *uuid.UUID) ([]ToppingSet, error) {
	query := r.db.WithContext(ctx).
		Preload("Toppings").
		Where("store_id = ?", storeID)
	if excludePizzaID != nil {
		query = query.Where("id <> ?", *excludePizzaID)
	}

	var pizzas []models.Pizza
	if err := query.Find(&pizzas).Error; err != nil {
		return nil, err
	}

	sets := make([]ToppingSet, 0, len(pizzas))
	for _, p := range pizzas {
		sets = append(sets, ToppingSet{
			PizzaID:    p.ID,
			PizzaName:  p.Name,
			ToppingIDs: p.ToppingIDs(),
		})
	}
	return sets, nil
}
