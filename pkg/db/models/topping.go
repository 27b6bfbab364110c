package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Topping struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;type:text;not null"`
	NameKey   string    `gorm:"column:name_key;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Topping) TableName() string { return "toppings" }

func (t *Topping) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Topping) BeforeSave(*gorm.DB) error {
	if t.Name != "" {
		t.NameKey = MenuNameKey(t.Name)
	}
	return nil
}
