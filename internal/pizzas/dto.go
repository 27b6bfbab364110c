package pizzas

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// ToppingRef is a topping as embedded in a pizza.
type ToppingRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// PizzaDTO is the API shape of a pizza with its toppings sorted by name.
type PizzaDTO struct {
	ID        uuid.UUID    `json:"id"`
	StoreID   uuid.UUID    `json:"store_id"`
	Name      string       `json:"name"`
	CreatedBy *uuid.UUID   `json:"created_by,omitempty"`
	Toppings  []ToppingRef `json:"toppings"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PizzaRequest is the body of create and update calls.
type PizzaRequest struct {
	Name       string      `json:"name" validate:"required,max=80"`
	ToppingIDs []uuid.UUID `json:"topping_ids"`
}

func FromModel(p *models.Pizza) PizzaDTO {
	refs := make([]ToppingRef, 0, len(p.Toppings))
	for _, pt := range p.Toppings {
		ref := ToppingRef{ID: pt.ToppingID}
		if pt.Topping != nil {
			ref.Name = pt.Topping.Name
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].Name) < strings.ToLower(refs[j].Name)
	})
	return PizzaDTO{
		ID:        p.ID,
		StoreID:   p.StoreID,
		Name:      p.Name,
		CreatedBy: p.CreatedBy,
		Toppings:  refs,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func FromModels(rows []models.Pizza) []PizzaDTO {
	out := make([]PizzaDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
