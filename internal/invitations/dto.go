package invitations

import (
	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/internal/auth"
	"github.com/mozz-online/mozz-backend/internal/memberships"
)

// CreateRequest is the body of POST /api/invitations. Role defaults to chef.
// Fields are checked by CreateInvitation so a missing field surfaces as
// "Missing required fields".
type CreateRequest struct {
	Email     string `json:"email"`
	StoreID   string `json:"storeId"`
	InviterID string `json:"inviterId"`
	Role      string `json:"role,omitempty"`
}

// CreateInput is the parsed form of CreateRequest.
type CreateInput struct {
	StoreID   uuid.UUID
	Email     string
	Role      string
	InviterID uuid.UUID
}

// CreateResult is the exact success body of POST /api/invitations.
type CreateResult struct {
	Success        bool `json:"success"`
	IsExistingUser bool `json:"isExistingUser"`
}

// CredentialsRequest is the body of the signup and signin accept endpoints.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	StoreID  string `json:"storeId" validate:"required,uuid"`
}

// AcceptRequest is the body of the authenticated accept endpoint.
type AcceptRequest struct {
	StoreID string `json:"storeId" validate:"required,uuid"`
}

// Activation describes a finished accept. AlreadyActive is set when the
// membership had been activated for the same user before this call.
type Activation struct {
	Membership    *memberships.MembershipDTO `json:"membership"`
	AlreadyActive bool                       `json:"already_active"`
	Session       *auth.AuthResult           `json:"session,omitempty"`
}
