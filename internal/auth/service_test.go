package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/users"
	pkgAuth "github.com/mozz-online/mozz-backend/pkg/auth"
	"github.com/mozz-online/mozz-backend/pkg/auth/session"
	"github.com/mozz-online/mozz-backend/pkg/config"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/dbtest"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "mozz", ExpirationMinutes: 30, RefreshTokenTTLMinutes: 120}

type stubSessionManager struct {
	live    map[string]string
	revoked []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{live: map[string]string{}}
}

func (s *stubSessionManager) Start(context.Context) (session.Session, error) {
	sess := session.Session{AccessID: session.NewAccessID(), RefreshToken: uuid.NewString()}
	s.live[sess.AccessID] = sess.RefreshToken
	return sess, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error) {
	if s.live[oldAccessID] == "" || s.live[oldAccessID] != provided {
		return session.Session{}, session.ErrInvalidRefreshToken
	}
	delete(s.live, oldAccessID)
	return s.Start(ctx)
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.live, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func (s *stubSessionManager) HasSession(_ context.Context, accessID string) (bool, error) {
	_, ok := s.live[accessID]
	return ok, nil
}

type fixture struct {
	svc      Service
	sessions *stubSessionManager
	users    *users.Repository
	members  *memberships.Repository
	client   *db.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	sessions := newStubSessionManager()
	userRepo := users.NewRepository(client.DB())
	memberRepo := memberships.NewRepository(client.DB())
	hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, MinLength: 6})

	svc, err := NewService(ServiceParams{
		UserRepo:        userRepo,
		MembershipsRepo: memberRepo,
		SessionManager:  sessions,
		Hasher:          hasher,
		JWTConfig:       testJWT,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, sessions: sessions, users: userRepo, members: memberRepo, client: client}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestSignUpCreatesAccountAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var events []Event
	unsubscribe := f.svc.Subscribe(func(evt Event) { events = append(events, evt) })
	defer unsubscribe()

	res, err := f.svc.SignUp(ctx, SignUpRequest{Email: " New.Chef@Example.com ", Password: "mozzarella"})
	require.NoError(t, err)
	assert.Equal(t, "new.chef@example.com", res.User.Email)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, res.AccessID(), claims.ID)

	exists, err := f.svc.AccountExists(ctx, "NEW.CHEF@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, events, 1)
	assert.Equal(t, enums.AuthEventSignedUp, events[0].Type)
}

func TestSignUpRejectsDuplicateAndShortPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpRequest{Email: "a@example.com", Password: "123"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAccountCreationFailed), "got %v", err)

	_, err = f.svc.SignUp(ctx, SignUpRequest{Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, SignUpRequest{Email: "A@example.com", Password: "long-enough"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAccountExists), "got %v", err)
}

func TestSignInAndSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, SignUpRequest{Email: "owner@example.com", Password: "pepperoni"})
	require.NoError(t, err)

	var seen []enums.AuthEventType
	unsubscribe := f.svc.Subscribe(func(evt Event) { seen = append(seen, evt.Type) })

	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "owner@example.com", Password: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "pepperoni"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	res, err := f.svc.SignIn(ctx, SignInRequest{Email: "OWNER@example.com", Password: "pepperoni"})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLoginAt)

	require.NoError(t, f.svc.SignOut(ctx, res.User.ID, res.AccessID()))
	assert.Contains(t, f.sessions.revoked, res.AccessID())

	unsubscribe()
	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "owner@example.com", Password: "pepperoni"})
	require.NoError(t, err)

	assert.Equal(t, []enums.AuthEventType{enums.AuthEventSignedIn, enums.AuthEventSignedOut}, seen)
}

func TestSessionListsActiveStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpRequest{Email: "chef@example.com", Password: "basil-leaf"})
	require.NoError(t, err)

	info, err := f.svc.Session(ctx, res.User.ID, res.AccessID())
	require.NoError(t, err)
	assert.Equal(t, "chef@example.com", info.User.Email)
	assert.Empty(t, info.Stores)

	store := models.Store{Name: "Uptown", OwnerID: uuid.New()}
	require.NoError(t, f.client.DB().Create(&store).Error)
	userID := res.User.ID
	require.NoError(t, f.members.Create(ctx, &models.StoreMember{
		StoreID: store.ID, Email: "chef@example.com", Role: enums.MemberRoleChef,
		Status: enums.MembershipStatusActive, UserID: &userID,
	}))
	require.NoError(t, f.members.Create(ctx, &models.StoreMember{
		StoreID: uuid.New(), Email: "chef@example.com", Role: enums.MemberRoleChef,
		Status: enums.MembershipStatusInvited,
	}))

	info, err = f.svc.Session(ctx, res.User.ID, res.AccessID())
	require.NoError(t, err)
	require.Len(t, info.Stores, 1)
	assert.Equal(t, "Uptown", info.Stores[0].Name)
	assert.Equal(t, enums.MemberRoleChef, info.Stores[0].Role)

	require.NoError(t, f.svc.SignOut(ctx, res.User.ID, res.AccessID()))
	_, err = f.svc.Session(ctx, res.User.ID, res.AccessID())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpRequest{Email: "rotate@example.com", Password: "oregano"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: res.AccessToken, RefreshToken: "nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	next, err := f.svc.Refresh(ctx, RefreshRequest{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessID(), next.AccessID())
	assert.Equal(t, res.User.ID, next.User.ID)

	alive, err := f.sessions.HasSession(ctx, res.AccessID())
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestSubscribeUnsubscribeIsIdempotent(t *testing.T) {
	b := newBroadcaster()
	calls := 0
	unsubscribe := b.subscribe(func(Event) { calls++ })
	b.publish(Event{Type: enums.AuthEventSignedIn, At: time.Now()})
	unsubscribe()
	unsubscribe()
	b.publish(Event{Type: enums.AuthEventSignedIn})
	assert.Equal(t, 1, calls)
	assert.NotPanics(t, func() { b.subscribe(nil)() })
}

func TestAuthenticateMapsLookupFailure(t *testing.T) {
	svc, err := NewService(ServiceParams{
		UserRepo:        failingUsers{},
		MembershipsRepo: memberships.NewRepository(dbtest.Open(t).DB()),
		SessionManager:  newStubSessionManager(),
		Hasher:          security.NewHasher(config.PasswordConfig{}),
		JWTConfig:       testJWT,
	})
	require.NoError(t, err)
	_, err = svc.SignIn(context.Background(), SignInRequest{Email: "x@example.com", Password: "secret1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)
}

type failingUsers struct{}

var errBoom = errors.New("boom")

func (failingUsers) Create(context.Context, users.CreateUserDTO) (*models.User, error) {
	return nil, errBoom
}
func (failingUsers) FindByEmail(context.Context, string) (*models.User, error) { return nil, errBoom }
func (failingUsers) ExistsByEmail(context.Context, string) (bool, error)       { return false, errBoom }
func (failingUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) { return nil, errBoom }
func (failingUsers) UpdateLastLogin(context.Context, uuid.UUID, time.Time) error {
	return errBoom
}
