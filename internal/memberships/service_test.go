package memberships

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/dbtest"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
)

type fixture struct {
	client  *db.Client
	repo    *Repository
	svc     Service
	outbox  *outbox.Repository
	storeID uuid.UUID
	ownerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	outboxRepo := outbox.NewRepository(client.DB())
	svc, err := NewService(repo, client, outbox.NewService(outboxRepo, logger.Nop()), logger.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ownerID := uuid.New()
	store := models.Store{Name: "Downtown", OwnerID: ownerID}
	if err := client.DB().Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	f := &fixture{client: client, repo: repo, svc: svc, outbox: outboxRepo, storeID: store.ID, ownerID: ownerID}
	f.addMember(t, "owner@mozz.online", enums.MemberRoleOwner, &ownerID)
	return f
}

func (f *fixture) addMember(t *testing.T, email string, role enums.MemberRole, userID *uuid.UUID) *models.StoreMember {
	t.Helper()
	status := enums.MembershipStatusInvited
	if userID != nil {
		status = enums.MembershipStatusActive
	}
	m := &models.StoreMember{StoreID: f.storeID, Email: email, Role: role, Status: status, UserID: userID}
	if err := f.repo.Create(context.Background(), m); err != nil {
		t.Fatalf("create member %s: %v", email, err)
	}
	return m
}

func TestListMembersOrdersOwnersFirst(t *testing.T) {
	f := newFixture(t)
	chefID := uuid.New()
	f.addMember(t, "alice@mozz.online", enums.MemberRoleChef, &chefID)
	f.addMember(t, "Zed@Mozz.online", enums.MemberRoleChef, nil)

	got, err := f.svc.ListMembers(context.Background(), chefID, f.storeID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	want := []string{"owner@mozz.online", "alice@mozz.online", "zed@mozz.online"}
	if len(got) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(got))
	}
	for i, email := range want {
		if got[i].Email != email {
			t.Fatalf("position %d: expected %s got %s", i, email, got[i].Email)
		}
	}

	if _, err := f.svc.ListMembers(context.Background(), uuid.New(), f.storeID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chefID := uuid.New()
	f.addMember(t, "chef@mozz.online", enums.MemberRoleChef, &chefID)

	if err := f.svc.RemoveMember(ctx, chefID, f.storeID, "owner@mozz.online"); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("chef should not remove members, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.ownerID, f.storeID, "OWNER@mozz.online"); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected last owner conflict, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.ownerID, f.storeID, "ghost@mozz.online"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.ownerID, f.storeID, " Chef@Mozz.online "); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	if _, err := f.repo.GetByEmail(ctx, f.storeID, "chef@mozz.online"); err == nil {
		t.Fatalf("expected membership to be deleted")
	}
	events, err := f.outbox.ListForAggregate(ctx, f.storeID)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventMemberRemoved {
		t.Fatalf("expected one member_removed event, got %+v", events)
	}
}

func TestActivateInvitedIsConditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addMember(t, "new@mozz.online", enums.MemberRoleChef, nil)
	userID := uuid.New()

	n, err := f.repo.ActivateInvited(ctx, f.storeID, "NEW@mozz.online", userID, f.now())
	if err != nil || n != 1 {
		t.Fatalf("first activation: n=%d err=%v", n, err)
	}
	n, err = f.repo.ActivateInvited(ctx, f.storeID, "new@mozz.online", uuid.New(), f.now())
	if err != nil || n != 0 {
		t.Fatalf("second activation should match nothing: n=%d err=%v", n, err)
	}

	m, err := f.repo.GetByEmail(ctx, f.storeID, "new@mozz.online")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !m.IsActiveFor(userID) || m.ActivatedAt == nil {
		t.Fatalf("unexpected membership state %+v", m)
	}

	current, err := f.svc.CurrentMembership(ctx, userID, f.storeID)
	if err != nil || current.Role != enums.MemberRoleChef {
		t.Fatalf("CurrentMembership: %+v %v", current, err)
	}
}

func TestCreateRejectsDuplicateEmailPerStore(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "dup@mozz.online", enums.MemberRoleChef, nil)
	err := f.repo.Create(context.Background(), &models.StoreMember{
		StoreID: f.storeID, Email: "DUP@mozz.online", Role: enums.MemberRoleChef, Status: enums.MembershipStatusInvited,
	})
	if !db.IsUniqueViolation(err, db.ConstraintMemberEmail) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestListUserStores(t *testing.T) {
	f := newFixture(t)
	stores, err := f.repo.ListUserStores(context.Background(), f.ownerID)
	if err != nil {
		t.Fatalf("ListUserStores: %v", err)
	}
	if len(stores) != 1 || stores[0].StoreName != "Downtown" || stores[0].Role != enums.MemberRoleOwner {
		t.Fatalf("unexpected stores %+v", stores)
	}
}

func (f *fixture) now() time.Time { return time.Now().UTC() }
