package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/internal/auth"
	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
	"github.com/mozz-online/mozz-backend/pkg/outbox/payloads"
)

const (
	notAuthorizedMessage   = "Not authorized to invite to this store"
	alreadyInvitedMessage  = "This email has already been invited to this store"
	invitationMissingMsg   = "No pending invitation found for this email and store"
	missingFieldsMessage   = "Missing required fields"
	activationPathSignUp   = "signup"
	activationPathSignIn   = "signin"
	activationPathAccepted = "accept"
)

var (
	errNoInvitedRow = errors.New("no invited membership row")
	emailCheck      = validator.New()
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type membershipStore interface {
	WithTx(tx *gorm.DB) *memberships.Repository
	GetByEmail(ctx context.Context, storeID uuid.UUID, email string) (*models.StoreMember, error)
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// IdentityProvider is the account surface the reconciler relies on.
type IdentityProvider interface {
	AccountExists(ctx context.Context, email string) (bool, error)
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.AuthResult, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.AuthResult, error)
}

// Recorder receives invitation metrics.
type Recorder interface {
	InvitationCreated(kind string)
	MembershipActivated(path string, alreadyActive bool)
}

// Service creates invitations and reconciles them with accounts.
type Service interface {
	CreateInvitation(ctx context.Context, in CreateInput) (*CreateResult, error)
	ActivateMembership(ctx context.Context, email string, storeID, userID uuid.UUID) (*Activation, error)
	SignUpAndActivate(ctx context.Context, email, password string, storeID uuid.UUID) (*Activation, error)
	SignInAndActivate(ctx context.Context, email, password string, storeID uuid.UUID) (*Activation, error)
	AcceptForUser(ctx context.Context, userID uuid.UUID, email string, storeID uuid.UUID) (*Activation, error)
}

// ServiceParams bundles the reconciler dependencies.
type ServiceParams struct {
	Memberships membershipStore
	Stores      storeLookup
	Identity    IdentityProvider
	Tx          txRunner
	Outbox      outboxPublisher
	LinkBaseURL string
	Recorder    Recorder
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	memberships membershipStore
	stores      storeLookup
	identity    IdentityProvider
	tx          txRunner
	outbox      outboxPublisher
	linkBase    string
	recorder    Recorder
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Memberships == nil:
		return nil, fmt.Errorf("memberships repository required")
	case p.Stores == nil:
		return nil, fmt.Errorf("stores repository required")
	case p.Identity == nil:
		return nil, fmt.Errorf("identity provider required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case strings.TrimSpace(p.LinkBaseURL) == "":
		return nil, fmt.Errorf("link base url required")
	}
	s := &service{
		memberships: p.Memberships,
		stores:      p.Stores,
		identity:    p.Identity,
		tx:          p.Tx,
		outbox:      p.Outbox,
		linkBase:    strings.TrimRight(strings.TrimSpace(p.LinkBaseURL), "/"),
		recorder:    p.Recorder,
		logg:        p.Logger,
		now:         p.Now,
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// CreateInvitation inserts an invited membership and queues the invitation
// link in the same transaction. Inviting an owner takes an owner; inviting a
// chef takes any active member.
func (s *service) CreateInvitation(ctx context.Context, in CreateInput) (*CreateResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.StoreID == uuid.Nil || in.InviterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, missingFieldsMessage)
	}
	if err := emailCheck.Var(email, "required,email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid email address")
	}
	role, err := enums.ParseMemberRole(in.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Role must be owner or chef")
	}

	allowed := []enums.MemberRole{enums.MemberRoleOwner, enums.MemberRoleChef}
	if role == enums.MemberRoleOwner {
		allowed = []enums.MemberRole{enums.MemberRoleOwner}
	}
	ok, err := s.memberships.UserHasRole(ctx, in.InviterID, in.StoreID, allowed...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check inviter membership")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, notAuthorizedMessage)
	}

	if _, err := s.memberships.GetByEmail(ctx, in.StoreID, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyInvited, alreadyInvitedMessage)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing membership")
	}

	store, err := s.stores.FindByID(ctx, in.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	existing, err := s.identity.AccountExists(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check account")
	}
	kind := enums.InvitationKindFor(existing)

	inviter := in.InviterID
	member := &models.StoreMember{
		StoreID:         in.StoreID,
		Email:           email,
		Role:            role,
		Status:          enums.MembershipStatusInvited,
		InvitedByUserID: &inviter,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.memberships.WithTx(tx).Create(ctx, member); err != nil {
			if db.IsUniqueViolation(err, db.ConstraintMemberEmail) {
				return pkgerrors.New(pkgerrors.CodeAlreadyInvited, alreadyInvitedMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationLinkRequested,
			AggregateType: enums.AggregateStoreMember,
			AggregateID:   member.ID,
			Actor:         outbox.Actor(inviter, in.StoreID, ""),
			Data: payloads.InvitationLinkRequested{
				MembershipID:   member.ID,
				StoreID:        in.StoreID,
				StoreName:      store.Name,
				Email:          email,
				Role:           role,
				InvitationType: kind,
				RedirectURL:    s.redirectURL(kind, in.StoreID),
				InvitedBy:      &inviter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.recorder.InvitationCreated(kind.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id":        in.StoreID.String(),
		"membership_id":   member.ID.String(),
		"invitee":         logger.RedactEmail(email),
		"invitation_kind": kind.String(),
	}), "invitation.created")
	return &CreateResult{Success: true, IsExistingUser: existing}, nil
}

// ActivateMembership binds the invited row for (email, storeID) to userID with
// a single conditional update. When nothing changed it re-reads the row so a
// repeat accept by the same user reports AlreadyActive instead of failing.
func (s *service) ActivateMembership(ctx context.Context, email string, storeID, userID uuid.UUID) (*Activation, error) {
	return s.activate(ctx, activationPathAccepted, email, storeID, userID)
}

// SignUpAndActivate refuses to create an account unless an invitation is pending.
func (s *service) SignUpAndActivate(ctx context.Context, email, password string, storeID uuid.UUID) (*Activation, error) {
	email = normalizeEmail(email)
	if email == "" || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, missingFieldsMessage)
	}
	if err := s.requirePending(ctx, storeID, email); err != nil {
		return nil, err
	}

	session, err := s.identity.SignUp(ctx, auth.SignUpRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	act, err := s.activate(ctx, activationPathSignUp, email, storeID, session.User.ID)
	if err != nil {
		return nil, err
	}
	act.Session = session
	return act, nil
}

func (s *service) SignInAndActivate(ctx context.Context, email, password string, storeID uuid.UUID) (*Activation, error) {
	email = normalizeEmail(email)
	if email == "" || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, missingFieldsMessage)
	}
	session, err := s.identity.SignIn(ctx, auth.SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	act, err := s.activate(ctx, activationPathSignIn, email, storeID, session.User.ID)
	if err != nil {
		return nil, err
	}
	act.Session = session
	return act, nil
}

// AcceptForUser activates an invitation for a caller who is already signed in.
func (s *service) AcceptForUser(ctx context.Context, userID uuid.UUID, email string, storeID uuid.UUID) (*Activation, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.activate(ctx, activationPathAccepted, email, storeID, userID)
}

func (s *service) activate(ctx context.Context, path, email string, storeID, userID uuid.UUID) (*Activation, error) {
	email = normalizeEmail(email)
	if email == "" || storeID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, missingFieldsMessage)
	}

	var activated *models.StoreMember
	at := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.memberships.WithTx(tx)
		n, err := repo.ActivateInvited(ctx, storeID, email, userID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate membership")
		}
		if n == 0 {
			return errNoInvitedRow
		}
		activated, err = repo.GetByEmail(ctx, storeID, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload membership")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMembershipActivated,
			AggregateType: enums.AggregateStoreMember,
			AggregateID:   activated.ID,
			Actor:         outbox.Actor(userID, storeID, activated.Role.String()),
			Data: payloads.MembershipActivated{
				MembershipID: activated.ID,
				StoreID:      storeID,
				Email:        email,
				UserID:       userID,
				Role:         activated.Role,
			},
		})
	})

	if errors.Is(err, errNoInvitedRow) {
		current, lookupErr := s.memberships.GetByEmail(ctx, storeID, email)
		if lookupErr == nil && current.IsActiveFor(userID) {
			s.recorder.MembershipActivated(path, true)
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"store_id":      storeID.String(),
				"user_id":       userID.String(),
				"membership_id": current.ID.String(),
				"path":          path,
			}), "membership.activate.already_active")
			return &Activation{Membership: memberships.ToDTO(current), AlreadyActive: true}, nil
		}
		if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "load membership")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvitationNotFound, invitationMissingMsg)
	}
	if err != nil {
		return nil, err
	}

	s.recorder.MembershipActivated(path, false)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id":      storeID.String(),
		"user_id":       userID.String(),
		"membership_id": activated.ID.String(),
		"path":          path,
	}), "membership.activated")
	return &Activation{Membership: memberships.ToDTO(activated)}, nil
}

func (s *service) requirePending(ctx context.Context, storeID uuid.UUID, email string) error {
	m, err := s.memberships.GetByEmail(ctx, storeID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeInvitationNotFound, invitationMissingMsg)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	if !m.Status.CanActivate() {
		return pkgerrors.New(pkgerrors.CodeInvitationNotFound, invitationMissingMsg)
	}
	return nil
}

func (s *service) redirectURL(kind enums.InvitationKind, storeID uuid.UUID) string {
	return s.linkBase + kind.LandingPath() + "?store_id=" + storeID.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type noopRecorder struct{}

func (noopRecorder) InvitationCreated(string)         {}
func (noopRecorder) MembershipActivated(string, bool) {}
