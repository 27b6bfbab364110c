package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/users"
	pkgAuth "github.com/mozz-online/mozz-backend/pkg/auth"
	"github.com/mozz-online/mozz-backend/pkg/auth/session"
	"github.com/mozz-online/mozz-backend/pkg/config"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	accountExistsMessage      = "An account with this email already exists"
)

// Service is the identity provider used by the auth controllers and the invitation reconciler.
type Service interface {
	AccountExists(ctx context.Context, email string) (bool, error)
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error)
	SignOut(ctx context.Context, userID uuid.UUID, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error)
	Session(ctx context.Context, userID uuid.UUID, accessID string) (*SessionInfo, error)
	Subscribe(fn Listener) (unsubscribe func())
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type membershipsRepository interface {
	ListUserStores(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithStore, error)
}

type sessionManager interface {
	Start(ctx context.Context) (session.Session, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type passwordHasher interface {
	CheckPolicy(password string) error
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies of the identity provider.
type ServiceParams struct {
	UserRepo        userRepository
	MembershipsRepo membershipsRepository
	SessionManager  sessionManager
	Hasher          passwordHasher
	JWTConfig       config.JWTConfig
	Logger          *logger.Logger
	Now             func() time.Time
}

type service struct {
	users       userRepository
	memberships membershipsRepository
	session     sessionManager
	hasher      passwordHasher
	jwtCfg      config.JWTConfig
	logg        *logger.Logger
	now         func() time.Time
	events      *broadcaster
}

// NewService builds the identity provider.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.MembershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.UserRepo,
		memberships: params.MembershipsRepo,
		session:     params.SessionManager,
		hasher:      params.Hasher,
		jwtCfg:      params.JWTConfig,
		logg:        logg,
		now:         now,
		events:      newBroadcaster(),
	}, nil
}

func (s *service) Subscribe(fn Listener) func() {
	return s.events.subscribe(fn)
}

func (s *service) AccountExists(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check account")
	}
	return exists, nil
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAccountCreationFailed, "email is required")
	}
	if err := s.hasher.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAccountCreationFailed, err, err.Error())
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check account")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeAccountExists, accountExistsMessage)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{Email: email, PasswordHash: hash})
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintUserEmail) {
			return nil, pkgerrors.New(pkgerrors.CodeAccountExists, accountExistsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeAccountCreationFailed, err, "create account")
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"email":   logger.RedactEmail(email),
	}), "account created")
	s.events.publish(Event{Type: enums.AuthEventSignedUp, UserID: user.ID, Email: email, At: s.now().UTC()})
	return result, nil
}

func (s *service) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &at

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.events.publish(Event{Type: enums.AuthEventSignedIn, UserID: user.ID, Email: user.Email, At: at})
	return result, nil
}

func (s *service) SignOut(ctx context.Context, userID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.events.publish(Event{Type: enums.AuthEventSignedOut, UserID: userID, At: s.now().UTC()})
	return nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	next, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, next.AccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return s.mint(user, next)
}

func (s *service) Session(ctx context.Context, userID uuid.UUID, accessID string) (*SessionInfo, error) {
	alive, err := s.session.HasSession(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session")
	}
	if !alive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	rows, err := s.memberships.ListUserStores(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	stores := make([]StoreSummary, 0, len(rows))
	for _, m := range rows {
		stores = append(stores, StoreSummary{ID: m.StoreID, Name: m.StoreName, Role: m.Role})
	}
	return &SessionInfo{User: users.FromModel(user), Stores: stores}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) openSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	sess, err := s.session.Start(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.mint(user, sess)
}

func (s *service) mint(user *models.User, sess session.Session) (*AuthResult, error) {
	now := s.now().UTC()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResult{
		AccessToken:  token,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		User:         users.FromModel(user),
		accessID:     sess.AccessID,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
