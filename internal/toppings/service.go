package toppings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/internal/uniqueness"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

const maxNameLength = 80

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type toppingRepository interface {
	WithTx(tx *gorm.DB) *Repository
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Topping, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*models.Topping, error)
	Create(ctx context.Context, t *models.Topping) error
	Rename(ctx context.Context, storeID, id uuid.UUID, name string) (int64, error)
}

type roleChecker interface {
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

type nameValidator interface {
	ValidateUniqueName(ctx context.Context, kind enums.MenuItemKind, storeID uuid.UUID, name string, excludeID *uuid.UUID) error
}

// Service manages a store's topping roster. Any active member can read it;
// only owners change it.
type Service interface {
	List(ctx context.Context, userID, storeID uuid.UUID) ([]ToppingDTO, error)
	Create(ctx context.Context, userID, storeID uuid.UUID, req ToppingRequest) (*ToppingDTO, error)
	Update(ctx context.Context, userID, storeID, toppingID uuid.UUID, req ToppingRequest) (*ToppingDTO, error)
	Delete(ctx context.Context, userID, storeID, toppingID uuid.UUID) error
}

type service struct {
	repo      toppingRepository
	roles     roleChecker
	validator nameValidator
	tx        txRunner
	logg      *logger.Logger
}

func NewService(repo toppingRepository, roles roleChecker, validator nameValidator, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("toppings repository required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker required")
	}
	if validator == nil {
		return nil, fmt.Errorf("uniqueness validator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, roles: roles, validator: validator, tx: tx, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID, storeID uuid.UUID) ([]ToppingDTO, error) {
	if err := s.require(ctx, userID, storeID, enums.MemberRoleOwner, enums.MemberRoleChef); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list toppings")
	}
	return FromModels(rows), nil
}

func (s *service) Create(ctx context.Context, userID, storeID uuid.UUID, req ToppingRequest) (*ToppingDTO, error) {
	if err := s.require(ctx, userID, storeID, enums.MemberRoleOwner); err != nil {
		return nil, err
	}
	name, err := checkName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUniqueName(ctx, enums.MenuItemTopping, storeID, name, nil); err != nil {
		return nil, err
	}

	row := &models.Topping{StoreID: storeID, Name: name}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, mapWriteErr(err, name, "create topping")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id":   storeID.String(),
		"topping_id": row.ID.String(),
	}), "topping created")
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, storeID, toppingID uuid.UUID, req ToppingRequest) (*ToppingDTO, error) {
	if err := s.require(ctx, userID, storeID, enums.MemberRoleOwner); err != nil {
		return nil, err
	}
	name, err := checkName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUniqueName(ctx, enums.MenuItemTopping, storeID, name, &toppingID); err != nil {
		return nil, err
	}

	n, err := s.repo.Rename(ctx, storeID, toppingID, name)
	if err != nil {
		return nil, mapWriteErr(err, name, "update topping")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "topping not found")
	}
	row, err := s.repo.Get(ctx, storeID, toppingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload topping")
	}
	dto := FromModel(row)
	return &dto, nil
}

// Delete removes the topping from the store and from every pizza using it.
func (s *service) Delete(ctx context.Context, userID, storeID, toppingID uuid.UUID) error {
	if err := s.require(ctx, userID, storeID, enums.MemberRoleOwner); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Delete(ctx, storeID, toppingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete topping")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "topping not found")
		}
		return nil
	})
}

func (s *service) require(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) error {
	ok, err := s.roles.UserHasRole(ctx, userID, storeID, roles...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if ok {
		return nil
	}
	if len(roles) == 1 && roles[0] == enums.MemberRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only store owners can manage toppings")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this store")
}

func checkName(raw string) (string, error) {
	name := uniqueness.NormalizeName(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "topping name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "topping name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// mapWriteErr turns a lost check-then-insert race into the same error the validator gives.
func mapWriteErr(err error, name, op string) error {
	if db.IsUniqueViolation(err, db.ConstraintToppingName) {
		return uniqueness.DuplicateNameError(enums.MenuItemTopping, name)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "topping not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
