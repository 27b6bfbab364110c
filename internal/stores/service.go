package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Store, error)
}

type membershipsRepository interface {
	WithTx(tx *gorm.DB) *memberships.Repository
	ListUserStores(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithStore, error)
	GetActiveMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMember, error)
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// Service exposes store operations.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]StoreDTO, error)
	Create(ctx context.Context, actor Actor, req CreateStoreRequest) (*StoreDTO, error)
	Get(ctx context.Context, userID, storeID uuid.UUID) (*StoreDTO, error)
	Update(ctx context.Context, userID, storeID uuid.UUID, req UpdateStoreRequest) (*StoreDTO, error)
	Delete(ctx context.Context, userID, storeID uuid.UUID) error
	IsOwner(ctx context.Context, userID, storeID uuid.UUID) (bool, error)
}

type service struct {
	repo        storeRepository
	memberships membershipsRepository
	tx          txRunner
	logg        *logger.Logger
}

func NewService(repo storeRepository, membershipsRepo membershipsRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if membershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, memberships: membershipsRepo, tx: tx, logg: logg}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]StoreDTO, error) {
	rows, err := s.memberships.ListUserStores(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for _, row := range rows {
		role := row.Role
		out = append(out, StoreDTO{
			ID:        row.StoreID,
			Name:      row.StoreName,
			OwnerID:   row.OwnerID,
			Role:      &role,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Create inserts the store and the creator's active owner membership together.
func (s *service) Create(ctx context.Context, actor Actor, req CreateStoreRequest) (*StoreDTO, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	email := memberships.NormalizeEmail(actor.Email)
	if actor.UserID == uuid.Nil || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	store := &models.Store{Name: name, OwnerID: actor.UserID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, store); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
		}
		now := time.Now().UTC()
		userID := actor.UserID
		owner := &models.StoreMember{
			StoreID:     store.ID,
			Email:       email,
			Role:        enums.MemberRoleOwner,
			Status:      enums.MembershipStatusActive,
			UserID:      &userID,
			ActivatedAt: &now,
		}
		if err := s.memberships.WithTx(tx).Create(ctx, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id": store.ID.String(),
		"user_id":  actor.UserID.String(),
	}), "store created")
	return withRole(FromModel(store), enums.MemberRoleOwner), nil
}

func (s *service) Get(ctx context.Context, userID, storeID uuid.UUID) (*StoreDTO, error) {
	member, err := s.requireMember(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return withRole(FromModel(store), member.Role), nil
}

func (s *service) Update(ctx context.Context, userID, storeID uuid.UUID, req UpdateStoreRequest) (*StoreDTO, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, userID, storeID); err != nil {
		return nil, err
	}
	store, err := s.repo.UpdateName(ctx, storeID, name)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return withRole(FromModel(store), enums.MemberRoleOwner), nil
}

func (s *service) Delete(ctx context.Context, userID, storeID uuid.UUID) error {
	if err := s.requireOwner(ctx, userID, storeID); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).DeleteCascade(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete store")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id": storeID.String(),
		"user_id":  userID.String(),
	}), "store deleted")
	return nil
}

func (s *service) IsOwner(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	ok, err := s.memberships.UserHasRole(ctx, userID, storeID, enums.MemberRoleOwner)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return ok, nil
}

func (s *service) requireMember(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMember, error) {
	m, err := s.memberships.GetActiveMembership(ctx, userID, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this store")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return m, nil
}

func (s *service) requireOwner(ctx context.Context, userID, storeID uuid.UUID) error {
	ok, err := s.IsOwner(ctx, userID, storeID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only store owners can do that")
	}
	return nil
}

func validateName(raw string) (string, error) {
	name := cleanName(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "store name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
}
