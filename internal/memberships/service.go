package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
	"github.com/mozz-online/mozz-backend/pkg/outbox"
	"github.com/mozz-online/mozz-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type membershipStore interface {
	WithTx(tx *gorm.DB) *Repository
	GetActiveMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMember, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreMember, error)
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// Service exposes the roster operations available to store members.
type Service interface {
	ListMembers(ctx context.Context, actorID, storeID uuid.UUID) ([]MembershipDTO, error)
	CurrentMembership(ctx context.Context, userID, storeID uuid.UUID) (*MembershipDTO, error)
	RemoveMember(ctx context.Context, actorID, storeID uuid.UUID, email string) error
}

type service struct {
	repo   membershipStore
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(repo membershipStore, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

func (s *service) ListMembers(ctx context.Context, actorID, storeID uuid.UUID) ([]MembershipDTO, error) {
	ok, err := s.repo.UserHasRole(ctx, actorID, storeID, enums.MemberRoleOwner, enums.MemberRoleChef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this store")
	}

	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store members")
	}
	return ToDTOs(rows), nil
}

func (s *service) CurrentMembership(ctx context.Context, userID, storeID uuid.UUID) (*MembershipDTO, error) {
	m, err := s.repo.GetActiveMembership(ctx, userID, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	return ToDTO(m), nil
}

// RemoveMember deletes a membership by email. Only active owners may remove
// members and the last active owner cannot be removed.
func (s *service) RemoveMember(ctx context.Context, actorID, storeID uuid.UUID, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	ok, err := s.repo.UserHasRole(ctx, actorID, storeID, enums.MemberRoleOwner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only store owners can remove members")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetByEmail(ctx, storeID, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
		}

		if target.Role == enums.MemberRoleOwner && target.Status == enums.MembershipStatusActive {
			count, err := repo.CountActiveOwners(ctx, storeID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count owners")
			}
			if count <= 1 {
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove last owner")
			}
		}

		if _, err := repo.DeleteByEmail(ctx, storeID, email); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMemberRemoved,
			AggregateType: enums.AggregateStore,
			AggregateID:   storeID,
			Actor:         outbox.Actor(actorID, storeID, enums.MemberRoleOwner.String()),
			Data: payloads.MemberRemoved{
				StoreID:   storeID,
				Email:     email,
				RemovedBy: actorID,
				UserID:    copyUUIDPointer(target.UserID),
			},
		})
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"store_id": storeID.String(), "email": logger.RedactEmail(email)}), "membership.removed")
	return nil
}
