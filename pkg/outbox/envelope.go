package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID  uuid.UUID  `json:"userId"`
	StoreID *uuid.UUID `json:"storeId,omitempty"`
	Role    string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Actor builds an ActorRef scoped to a store. A nil user yields nil.
func Actor(userID uuid.UUID, storeID uuid.UUID, role string) *ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	ref := &ActorRef{UserID: userID, Role: role}
	if storeID != uuid.Nil {
		sid := storeID
		ref.StoreID = &sid
	}
	return ref
}
