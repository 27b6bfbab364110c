package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozz-online/mozz-backend/internal/auth"
	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/stores"
	"github.com/mozz-online/mozz-backend/internal/users"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/dbtest"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
	"github.com/mozz-online/mozz-backend/pkg/outbox/payloads"
)

type account struct {
	id       uuid.UUID
	password string
}

type fakeIdentity struct {
	accounts map[string]account
}

func (f *fakeIdentity) AccountExists(_ context.Context, email string) (bool, error) {
	_, ok := f.accounts[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, req auth.SignUpRequest) (*auth.AuthResult, error) {
	email := strings.ToLower(req.Email)
	if _, ok := f.accounts[email]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeAccountExists, "An account with this email already exists")
	}
	acc := account{id: uuid.New(), password: req.Password}
	f.accounts[email] = acc
	return &auth.AuthResult{AccessToken: "token", User: &users.UserDTO{ID: acc.id, Email: email}}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, req auth.SignInRequest) (*auth.AuthResult, error) {
	email := strings.ToLower(req.Email)
	acc, ok := f.accounts[email]
	if !ok || acc.password != req.Password {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return &auth.AuthResult{AccessToken: "token", User: &users.UserDTO{ID: acc.id, Email: email}}, nil
}

type countingRecorder struct {
	created   map[string]int
	activated map[string]int
}

func (c *countingRecorder) InvitationCreated(kind string) { c.created[kind]++ }

func (c *countingRecorder) MembershipActivated(path string, already bool) {
	if already {
		path += ":already"
	}
	c.activated[path]++
}

type fixture struct {
	client   *db.Client
	svc      Service
	members  *memberships.Repository
	outbox   *outbox.Repository
	identity *fakeIdentity
	recorder *countingRecorder
	logs     *bytes.Buffer
	storeID  uuid.UUID
	ownerID  uuid.UUID
	chefID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	members := memberships.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	identity := &fakeIdentity{accounts: map[string]account{}}
	recorder := &countingRecorder{created: map[string]int{}, activated: map[string]int{}}
	logs := &bytes.Buffer{}

	svc, err := NewService(ServiceParams{
		Memberships: members,
		Stores:      stores.NewRepository(conn),
		Identity:    identity,
		Tx:          client,
		Outbox:      outbox.NewService(outboxRepo, logger.Nop()),
		LinkBaseURL: "https://www.mozz.online/",
		Recorder:    recorder,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: logs}),
	})
	require.NoError(t, err)

	store := models.Store{Name: "Downtown", OwnerID: uuid.New()}
	require.NoError(t, conn.Create(&store).Error)
	f := &fixture{
		client: client, svc: svc, members: members, outbox: outboxRepo, identity: identity,
		recorder: recorder, logs: logs, storeID: store.ID, ownerID: store.OwnerID, chefID: uuid.New(),
	}
	ctx := context.Background()
	require.NoError(t, members.Create(ctx, &models.StoreMember{
		StoreID: store.ID, Email: "owner@mozz.online", Role: enums.MemberRoleOwner,
		Status: enums.MembershipStatusActive, UserID: &f.ownerID,
	}))
	require.NoError(t, members.Create(ctx, &models.StoreMember{
		StoreID: store.ID, Email: "chef@mozz.online", Role: enums.MemberRoleChef,
		Status: enums.MembershipStatusActive, UserID: &f.chefID,
	}))
	return f
}

func (f *fixture) invite(t *testing.T, email, role string) *CreateResult {
	t.Helper()
	res, err := f.svc.CreateInvitation(context.Background(), CreateInput{
		StoreID: f.storeID, Email: email, Role: role, InviterID: f.ownerID,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) linkPayload(t *testing.T, membershipEmail string) payloads.InvitationLinkRequested {
	t.Helper()
	m, err := f.members.GetByEmail(context.Background(), f.storeID, membershipEmail)
	require.NoError(t, err)
	events, err := f.outbox.ListForAggregate(context.Background(), m.ID)
	require.NoError(t, err)
	for _, evt := range events {
		if evt.EventType != enums.EventInvitationLinkRequested {
			continue
		}
		var env outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(evt.Payload, &env))
		var data payloads.InvitationLinkRequested
		require.NoError(t, json.Unmarshal(env.Data, &data))
		return data
	}
	t.Fatalf("no invitation link event for %s", membershipEmail)
	return payloads.InvitationLinkRequested{}
}

func TestCreateInvitationForNewAddress(t *testing.T) {
	f := newFixture(t)

	res := f.invite(t, " New.Cook@Example.com ", "")
	assert.Equal(t, &CreateResult{Success: true, IsExistingUser: false}, res)

	m, err := f.members.GetByEmail(context.Background(), f.storeID, "new.cook@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.MembershipStatusInvited, m.Status)
	assert.Equal(t, enums.MemberRoleChef, m.Role)
	assert.Nil(t, m.UserID)
	require.NotNil(t, m.InvitedByUserID)
	assert.Equal(t, f.ownerID, *m.InvitedByUserID)

	link := f.linkPayload(t, "new.cook@example.com")
	assert.Equal(t, enums.InvitationKindSignup, link.InvitationType)
	assert.Equal(t, "https://www.mozz.online/signup?store_id="+f.storeID.String(), link.RedirectURL)
	assert.Equal(t, "Downtown", link.StoreName)
	assert.Equal(t, 1, f.recorder.created["signup"])
}

func TestCreateInvitationForExistingAccount(t *testing.T) {
	f := newFixture(t)
	f.identity.accounts["pal@example.com"] = account{id: uuid.New(), password: "secret1"}

	res := f.invite(t, "pal@example.com", "owner")
	assert.True(t, res.IsExistingUser)

	link := f.linkPayload(t, "pal@example.com")
	assert.Equal(t, enums.InvitationKindStore, link.InvitationType)
	assert.Equal(t, enums.MemberRoleOwner, link.Role)
	assert.True(t, strings.HasSuffix(link.RedirectURL, "/join-store?store_id="+f.storeID.String()))
}

func TestCreateInvitationRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.invite(t, "dup@example.com", "chef")

	_, err := f.svc.CreateInvitation(context.Background(), CreateInput{
		StoreID: f.storeID, Email: "DUP@example.com", InviterID: f.ownerID,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyInvited), "got %v", err)

	_, err = f.svc.CreateInvitation(context.Background(), CreateInput{
		StoreID: f.storeID, Email: "chef@mozz.online", InviterID: f.ownerID,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyInvited), "active members count as invited: %v", err)
}

func TestCreateInvitationPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateInvitation(ctx, CreateInput{StoreID: f.storeID, Email: "x@example.com", Role: "owner", InviterID: f.chefID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, "Not authorized to invite to this store", pkgerrors.As(err).Message())

	res, err := f.svc.CreateInvitation(ctx, CreateInput{StoreID: f.storeID, Email: "x@example.com", Role: "chef", InviterID: f.chefID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = f.svc.CreateInvitation(ctx, CreateInput{StoreID: f.storeID, Email: "y@example.com", InviterID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestCreateInvitationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []CreateInput{
		{StoreID: f.storeID, InviterID: f.ownerID},
		{Email: "a@example.com", InviterID: f.ownerID},
		{StoreID: f.storeID, Email: "a@example.com"},
		{StoreID: f.storeID, Email: "not-an-email", InviterID: f.ownerID},
		{StoreID: f.storeID, Email: "Bob <bob@example.com>", Role: "chef", InviterID: f.ownerID},
		{StoreID: f.storeID, Email: "a@example.com", Role: "admin", InviterID: f.ownerID},
	}
	for _, in := range cases {
		_, err := f.svc.CreateInvitation(ctx, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v gave %v", in, err)
	}
}

func TestCreateInvitationDisplayNameAddressDoesNotDuplicateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateInvitation(ctx, CreateInput{
		StoreID: f.storeID, Email: "Bob <bob@example.com>", Role: "chef", InviterID: f.ownerID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	f.invite(t, "bob@example.com", "chef")
	all, err := f.members.ListByStore(ctx, f.storeID)
	require.NoError(t, err)
	bobs := 0
	for _, m := range all {
		if strings.Contains(m.Email, "bob") {
			bobs++
			assert.Equal(t, "bob@example.com", m.Email)
		}
	}
	assert.Equal(t, 1, bobs)
}

func TestActivateMembershipTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invite(t, "twice@example.com", "chef")
	userID := uuid.New()

	first, err := f.svc.ActivateMembership(ctx, "Twice@Example.com", f.storeID, userID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyActive)
	assert.Equal(t, enums.MembershipStatusActive, first.Membership.Status)
	require.NotNil(t, first.Membership.UserID)
	assert.Equal(t, userID, *first.Membership.UserID)

	second, err := f.svc.ActivateMembership(ctx, "twice@example.com", f.storeID, userID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyActive)

	_, err = f.svc.ActivateMembership(ctx, "twice@example.com", f.storeID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvitationNotFound), "other user must not take over: %v", err)

	m, err := f.members.GetByEmail(ctx, f.storeID, "twice@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, *m.UserID)

	events, err := f.outbox.ListForAggregate(ctx, m.ID)
	require.NoError(t, err)
	activated := 0
	for _, evt := range events {
		if evt.EventType == enums.EventMembershipActivated {
			activated++
		}
	}
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, f.recorder.activated["accept"])
	assert.Equal(t, 1, f.recorder.activated["accept:already"])

	logged := f.logs.String()
	assert.Contains(t, logged, `"message":"invitation.created"`)
	assert.Contains(t, logged, `"message":"membership.activated"`)
	assert.Contains(t, logged, `"message":"membership.activate.already_active"`)
}

func TestActivateMembershipWithoutInvitation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ActivateMembership(context.Background(), "ghost@example.com", f.storeID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvitationNotFound), "got %v", err)
}

func TestSignUpAndActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUpAndActivate(ctx, "stranger@example.com", "secret1", f.storeID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvitationNotFound), "got %v", err)
	assert.Empty(t, f.identity.accounts, "no account without an invitation")

	f.invite(t, "fresh@example.com", "chef")
	act, err := f.svc.SignUpAndActivate(ctx, "fresh@example.com", "secret1", f.storeID)
	require.NoError(t, err)
	require.NotNil(t, act.Session)
	assert.Equal(t, act.Session.User.ID, *act.Membership.UserID)
	assert.Equal(t, enums.MembershipStatusActive, act.Membership.Status)
}

func TestSignUpConflictIsDistinguishable(t *testing.T) {
	f := newFixture(t)
	f.identity.accounts["known@example.com"] = account{id: uuid.New(), password: "secret1"}
	f.invite(t, "known@example.com", "chef")

	_, err := f.svc.SignUpAndActivate(context.Background(), "known@example.com", "another", f.storeID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAccountExists), "got %v", err)

	m, err := f.members.GetByEmail(context.Background(), f.storeID, "known@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.MembershipStatusInvited, m.Status)
}

func TestSignInAndActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accID := uuid.New()
	f.identity.accounts["member@example.com"] = account{id: accID, password: "secret1"}
	f.invite(t, "member@example.com", "chef")

	_, err := f.svc.SignInAndActivate(ctx, "member@example.com", "wrong", f.storeID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	act, err := f.svc.SignInAndActivate(ctx, "member@example.com", "secret1", f.storeID)
	require.NoError(t, err)
	assert.Equal(t, accID, *act.Membership.UserID)
	assert.Equal(t, 1, f.recorder.activated["signin"])
}

func TestAcceptForUserRequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AcceptForUser(context.Background(), uuid.Nil, "a@example.com", f.storeID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
