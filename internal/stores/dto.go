package stores

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
)

const maxNameLength = 120

// StoreDTO is the API shape of a store, including the caller's role when known.
type StoreDTO struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	OwnerID   uuid.UUID         `json:"owner_id"`
	Role      *enums.MemberRole `json:"role,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CreateStoreRequest is the body of POST /api/stores.
type CreateStoreRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// UpdateStoreRequest is the body of PATCH /api/stores/{storeId}.
type UpdateStoreRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func FromModel(s *models.Store) *StoreDTO {
	if s == nil {
		return nil
	}
	return &StoreDTO{
		ID:        s.ID,
		Name:      s.Name,
		OwnerID:   s.OwnerID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func withRole(dto *StoreDTO, role enums.MemberRole) *StoreDTO {
	if dto == nil {
		return nil
	}
	r := role
	dto.Role = &r
	return dto
}

func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
