package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/config"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
	"github.com/mozz-online/mozz-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveInvitation(t *testing.T) {
	reg := newTestEventRegistry(t)

	storeID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventInvitationLinkRequested,
		AggregateType: enums.AggregateStoreMember,
		AggregateID:   uuid.New(),
		Payload: mustEnvelope(t, payloads.InvitationLinkRequested{
			StoreID:        storeID,
			Email:          "chef@mozz.online",
			Role:           enums.MemberRoleChef,
			InvitationType: enums.InvitationKindSignup,
			RedirectURL:    "http://localhost:5173/signup?store_id=" + storeID.String(),
		}),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "invites-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.InvitationLinkRequested)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.StoreID != storeID || payload.InvitationType != enums.InvitationKindSignup {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing metadata: %+v", resolved.Envelope)
	}
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     "order_created",
			AggregateType: enums.AggregateStoreMember,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, map[string]string{"a": "b"}),
		},
		"aggregate mismatch": {
			EventType:     enums.EventMembershipActivated,
			AggregateType: enums.AggregateStore,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, payloads.MembershipActivated{}),
		},
		"missing aggregate": {
			EventType:     enums.EventMemberRemoved,
			AggregateType: enums.AggregateStore,
			Payload:       mustEnvelope(t, payloads.MemberRemoved{}),
		},
		"null payload": {
			EventType:     enums.EventMemberRemoved,
			AggregateType: enums.AggregateStore,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, nil),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetryable NonRetryableError
			if !errors.As(err, &nonRetryable) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected missing topic error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{InvitationTopic: "invites-topic"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func mustEnvelope(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return env
}
