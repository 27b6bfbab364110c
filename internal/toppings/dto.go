package toppings

import (
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// ToppingDTO is the API shape of a topping.
type ToppingDTO struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToppingRequest is the body of create and update calls.
type ToppingRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

func FromModel(t *models.Topping) ToppingDTO {
	return ToppingDTO{
		ID:        t.ID,
		StoreID:   t.StoreID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func FromModels(rows []models.Topping) []ToppingDTO {
	out := make([]ToppingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
