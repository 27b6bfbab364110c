package pizzas

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

type pizzaRepository interface {
	WithTx(tx *gorm.DB) *Repository
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Pizza, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*models.Pizza, error)
}

type toppingCounter interface {
	CountInStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type roleChecker interface {
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

type menuValidator interface {
	ValidateUniqueName(ctx context.Context, kind enums.MenuItemKind, storeID uuid.UUID, name string, excludeID *uuid.UUID) error
	ValidateUniquePizzaToppings(ctx context.Context, storeID uuid.UUID, toppingIDs []uuid.UUID, excludePizzaID *uuid.UUID) error
}

// Service manages a store's pizzas. Owners and chefs alike may change them.
type Service interface {
	List(ctx context.Context, userID, storeID uuid.UUID) ([]PizzaDTO, error)
	Get(ctx context.Context, userID, storeID, pizzaID uuid.UUID) (*PizzaDTO, error)
	Create(ctx context.Context, userID, storeID uuid.UUID, req PizzaRequest) (*PizzaDTO, error)
	Update(ctx context.Context, userID, storeID, pizzaID uuid.UUID, req PizzaRequest) (*PizzaDTO, error)
	Delete(ctx context.Context, userID, storeID, pizzaID uuid.UUID) error
}

// ServiceParams bundles the pizza service dependencies.
type ServiceParams struct {
	Repo      pizzaRepository
	Toppings  toppingCounter
	Roles     roleChecker
	Validator menuValidator
	Tx        txRunner
	Logger    *logger.Logger
}

type service struct {
	repo      pizzaRepository
	toppings  toppingCounter
	roles     roleChecker
	validator menuValidator
	tx        txRunner
	logg      *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("pizzas repository required")
	case p.Toppings == nil:
		return nil, fmt.Errorf("toppings repository required")
	case p.Roles == nil:
		return nil, fmt.Errorf("role checker required")
	case p.Validator == nil:
		return nil, fmt.Errorf("uniqueness validator required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      p.Repo,
		toppings:  p.Toppings,
		roles:     p.Roles,
		validator: p.Validator,
		tx:        p.Tx,
		logg:      logg,
	}, nil
}

func (s *service) List(ctx context.Context, userID, storeID uuid.UUID) ([]PizzaDTO, error) {
	if err := s.requireMember(ctx, userID, storeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pizzas")
	}
	return FromModels(rows), nil
}

func (s *service) Get(ctx context.Context, userID, storeID, pizzaID uuid.UUID) (*PizzaDTO, error) {
	if err := s.requireMember(ctx, userID, storeID); err != nil {
		return nil, err
	}
	return s.load(ctx, storeID, pizzaID)
}

func (s *service) Create(ctx context.Context, userID, storeID uuid.UUID, req PizzaRequest) (*PizzaDTO, error) {
	if err := s.requireMember(ctx, userID, storeID); err != nil {
		return nil, err
	}
	name, toppingIDs, err := s.check(ctx, storeID, req, nil)
	if err != nil {
		return nil, err
	}

	createdBy := userID
	row := &models.Pizza{StoreID: storeID, Name: name, CreatedBy: &createdBy}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row, toppingIDs); err != nil {
			return mapWriteErr(err, name, "create pizza")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"store_id": storeID.String(),
		"pizza_id": row.ID.String(),
		"toppings": len(toppingIDs),
	}), "pizza created")
	return s.load(ctx, storeID, row.ID)
}

func (s *service) Update(ctx context.Context, userID, storeID, pizzaID uuid.UUID, req PizzaRequest) (*PizzaDTO, error) {
	if err := s.requireMember(ctx, userID, storeID); err != nil {
		return nil, err
	}
	name, toppingIDs, err := s.check(ctx, storeID, req, &pizzaID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Replace(ctx, storeID, pizzaID, name, toppingIDs)
		if err != nil {
			return mapWriteErr(err, name, "update pizza")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, storeID, pizzaID)
}

func (s *service) Delete(ctx context.Context, userID, storeID, pizzaID uuid.UUID) error {
	if err := s.requireMember(ctx, userID, storeID); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Delete(ctx, storeID, pizzaID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pizza")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil
	})
}

// check runs every pre-write rule: name shape, name uniqueness, topping-set
// uniqueness and topping ownership.
func (s *service) check(ctx context.Context, storeID uuid.UUID, req PizzaRequest, excludeID *uuid.UUID) (string, []uuid.UUID, error) {
	name := uniqueness.NormalizeName(req.Name)
	if name == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "pizza name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", nil, pkgerrors.Newf(pkgerrors.CodeValidation, "pizza name must be at most %d characters", maxNameLength)
	}
	toppingIDs := uniqueness.DedupeIDs(req.ToppingIDs)
	for _, id := range toppingIDs {
		if id == uuid.Nil {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "topping ids must be valid uuids")
		}
	}

	if err := s.validator.ValidateUniqueName(ctx, enums.MenuItemPizza, storeID, name, excludeID); err != nil {
		return "", nil, err
	}
	if err := s.validator.ValidateUniquePizzaToppings(ctx, storeID, toppingIDs, excludeID); err != nil {
		return "", nil, err
	}

	if len(toppingIDs) > 0 {
		n, err := s.toppings.CountInStore(ctx, storeID, toppingIDs)
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check toppings")
		}
		if n != int64(len(toppingIDs)) {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "every topping must belong to this store")
		}
	}
	return name, toppingIDs, nil
}

func (s *service) load(ctx context.Context, storeID, pizzaID uuid.UUID) (*PizzaDTO, error) {
	row, err := s.repo.Get(ctx, storeID, pizzaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pizza not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pizza")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) requireMember(ctx context.Context, userID, storeID uuid.UUID) error {
	ok, err := s.roles.UserHasRole(ctx, userID, storeID, enums.MemberRoleOwner, enums.MemberRoleChef)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this store")
	}
	return nil
}

func mapWriteErr(err error, name, op string) error {
	if db.IsUniqueViolation(err, db.ConstraintPizzaName) {
		return uniqueness.DuplicateNameError(enums.MenuItemPizza, name)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
