package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Pizza struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	Name      string         `gorm:"column:name;type:text;not null"`
	NameKey   string         `gorm:"column:name_key;type:text;not null"`
	CreatedBy *uuid.UUID     `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	Toppings  []PizzaTopping `gorm:"foreignKey:PizzaID;references:ID"`
}

func (Pizza) TableName() string { return "pizzas" }

func (p *Pizza) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Pizza) BeforeSave(*gorm.DB) error {
	if p.Name != "" {
		p.NameKey = MenuNameKey(p.Name)
	}
	return nil
}

// ToppingIDs returns the ids of the attached toppings in stored order.
func (p Pizza) ToppingIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Toppings))
	for _, pt := range p.Toppings {
		ids = append(ids, pt.ToppingID)
	}
	return ids
}

// PizzaTopping is the many-to-many join between pizzas and toppings.
type PizzaTopping struct {
	PizzaID   uuid.UUID `gorm:"column:pizza_id;type:uuid;primaryKey"`
	ToppingID uuid.UUID `gorm:"column:topping_id;type:uuid;primaryKey;index"`
	Topping   *Topping  `gorm:"foreignKey:ToppingID;references:ID"`
}

func (PizzaTopping) TableName() string { return "pizza_toppings" }
