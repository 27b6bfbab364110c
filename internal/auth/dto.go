package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/internal/users"
	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// SignUpRequest is the body of POST /api/auth/signup.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInRequest is the body of POST /api/auth/login.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges an (possibly expired) access token and its refresh token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResult is returned by every flow that opens a session.
type AuthResult struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *users.UserDTO `json:"user"`
	accessID     string
}

// AccessID is the jti of the minted access token.
func (r *AuthResult) AccessID() string {
	if r == nil {
		return ""
	}
	return r.accessID
}

// StoreSummary lists a store the signed-in user is an active member of.
type StoreSummary struct {
	ID   uuid.UUID        `json:"id"`
	Name string           `json:"name"`
	Role enums.MemberRole `json:"role"`
}

// SessionInfo describes the caller of GET /api/auth/session.
type SessionInfo struct {
	User   *users.UserDTO `json:"user"`
	Stores []StoreSummary `json:"stores"`
}

// Event is broadcast to subscribers after an identity state change.
type Event struct {
	Type   enums.AuthEventType
	UserID uuid.UUID
	Email  string
	At     time.Time
}

// Listener receives auth events. It runs on the request goroutine and must not block.
type Listener func(Event)
