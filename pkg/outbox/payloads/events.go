package payloads

import (
	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// InvitationLinkRequested asks the mailer to send a sign-in or sign-up link.
type InvitationLinkRequested struct {
	MembershipID   uuid.UUID            `json:"membership_id"`
	StoreID        uuid.UUID            `json:"store_id"`
	StoreName      string               `json:"store_name,omitempty"`
	Email          string               `json:"email"`
	Role           enums.MemberRole     `json:"role"`
	InvitationType enums.InvitationKind `json:"invitation_type"`
	RedirectURL    string               `json:"redirect_url"`
	InvitedBy      *uuid.UUID           `json:"invited_by,omitempty"`
}

// MembershipActivated is emitted once an invitation is bound to an account.
type MembershipActivated struct {
	MembershipID uuid.UUID        `json:"membership_id"`
	StoreID      uuid.UUID        `json:"store_id"`
	Email        string           `json:"email"`
	UserID       uuid.UUID        `json:"user_id"`
	Role         enums.MemberRole `json:"role"`
}

// MemberRemoved is emitted when an owner deletes a membership.
type MemberRemoved struct {
	StoreID   uuid.UUID  `json:"store_id"`
	Email     string     `json:"email"`
	RemovedBy uuid.UUID  `json:"removed_by"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}
