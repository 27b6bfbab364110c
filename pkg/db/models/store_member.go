package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// StoreMember links an email address with a store. UserID stays nil while the
// row is invited and is bound exactly once on activation.
type StoreMember struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index"`
	Email           string                 `gorm:"column:email;type:text;not null"`
	Role            enums.MemberRole       `gorm:"column:role;type:text;not null"`
	Status          enums.MembershipStatus `gorm:"column:status;type:text;not null"`
	UserID          *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	InvitedByUserID *uuid.UUID             `gorm:"column:invited_by_user_id;type:uuid"`
	ActivatedAt     *time.Time             `gorm:"column:activated_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreMember) TableName() string { return "store_members" }

func (m *StoreMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsActiveFor reports whether the membership is active and bound to userID.
func (m StoreMember) IsActiveFor(userID uuid.UUID) bool {
	return m.Status == enums.MembershipStatusActive && m.UserID != nil && *m.UserID == userID
}
