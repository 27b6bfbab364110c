package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// MembershipDTO is the transport shape for a store_members row.
type MembershipDTO struct {
	ID              uuid.UUID              `json:"id"`
	StoreID         uuid.UUID              `json:"store_id"`
	Email           string                 `json:"email"`
	Role            enums.MemberRole       `json:"role"`
	Status          enums.MembershipStatus `json:"status"`
	UserID          *uuid.UUID             `json:"user_id,omitempty"`
	InvitedByUserID *uuid.UUID             `json:"invited_by_user_id,omitempty"`
	ActivatedAt     *time.Time             `json:"activated_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// MembershipWithStore pairs an active membership with its store for store pickers.
type MembershipWithStore struct {
	MembershipID uuid.UUID        `json:"membership_id"`
	StoreID      uuid.UUID        `json:"store_id"`
	StoreName    string           `json:"store_name"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Role         enums.MemberRole `json:"role"`
	CreatedAt    time.Time        `json:"created_at"`
}

type membershipWithStoreRow struct {
	ID        uuid.UUID        `gorm:"column:id"`
	StoreID   uuid.UUID        `gorm:"column:store_id"`
	StoreName string           `gorm:"column:store_name"`
	OwnerID   uuid.UUID        `gorm:"column:owner_id"`
	Role      enums.MemberRole `gorm:"column:role"`
	CreatedAt time.Time        `gorm:"column:created_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.StoreMember) *MembershipDTO {
	if m == nil {
		return nil
	}
	return &MembershipDTO{
		ID:              m.ID,
		StoreID:         m.StoreID,
		Email:           m.Email,
		Role:            m.Role,
		Status:          m.Status,
		UserID:          copyUUIDPointer(m.UserID),
		InvitedByUserID: copyUUIDPointer(m.InvitedByUserID),
		ActivatedAt:     m.ActivatedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func ToDTOs(rows []models.StoreMember) []MembershipDTO {
	out := make([]MembershipDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
