package toppings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozz-online/mozz-backend/internal/memberships"
	"github.com/mozz-online/mozz-backend/internal/uniqueness"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/dbtest"
	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

type fixture struct {
	client  *db.Client
	repo    *Repository
	svc     Service
	storeID uuid.UUID
	ownerID uuid.UUID
	chefID  uuid.UUID
}

func newFixture(t *testing.T, validator nameValidator) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	members := memberships.NewRepository(client.DB())
	if validator == nil {
		v, err := uniqueness.NewValidator(uniqueness.NewRepository(client.DB()))
		require.NoError(t, err)
		validator = v
	}
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, members, validator, client, logger.Nop())
	require.NoError(t, err)

	store := models.Store{Name: "Test Kitchen", OwnerID: uuid.New()}
	require.NoError(t, client.DB().Create(&store).Error)

	f := &fixture{client: client, repo: repo, svc: svc, storeID: store.ID, ownerID: store.OwnerID, chefID: uuid.New()}
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

type passAll struct{}

func (passAll) ValidateUniqueName(context.Context, enums.MenuItemKind, uuid.UUID, string, *uuid.UUID) error {
	return nil
}

func TestCreateListOrderedByName(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, name := range []string{"Pepperoni", " basil ", "Anchovy"} {
		_, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: name})
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx, f.chefID, f.storeID)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, tp := range list {
		names = append(names, tp.Name)
	}
	assert.Equal(t, []string{"Anchovy", "basil", "Pepperoni"}, names)

	_, err = f.svc.List(ctx, uuid.New(), f.storeID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestCreateRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Mushroom"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "  mushroom "})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)
	assert.Equal(t, `A topping named "mushroom" already exists in this store`, pkgerrors.As(err).Message())
}

func TestUniqueIndexBacksUpValidator(t *testing.T) {
	f := newFixture(t, passAll{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Olive"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "OLIVE"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)

	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Jalapeño"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "JALAPEÑO"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)
}

func TestNonASCIINamesCompareCaseInsensitively(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	jalapeno, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Jalapeño"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "JALAPEÑO"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)

	renamed, err := f.svc.Update(ctx, f.ownerID, f.storeID, jalapeno.ID, ToppingRequest{Name: "Crème Fraîche"})
	require.NoError(t, err)
	assert.Equal(t, "Crème Fraîche", renamed.Name)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "CRÈME FRAÎCHE"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "jalapeño"})
	assert.NoError(t, err, "old name is free after rename")
}

func TestChefsCannotMutate(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Create(context.Background(), f.chefID, f.storeID, ToppingRequest{Name: "Onion"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestUpdateExcludesSelf(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ham, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Ham"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Bacon"})
	require.NoError(t, err)

	renamed, err := f.svc.Update(ctx, f.ownerID, f.storeID, ham.ID, ToppingRequest{Name: "HAM"})
	require.NoError(t, err)
	assert.Equal(t, "HAM", renamed.Name)

	_, err = f.svc.Update(ctx, f.ownerID, f.storeID, ham.ID, ToppingRequest{Name: "bacon"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName), "got %v", err)

	_, err = f.svc.Update(ctx, f.ownerID, f.storeID, uuid.New(), ToppingRequest{Name: "Pineapple"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDeleteDetachesFromPizzas(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tp, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Garlic"})
	require.NoError(t, err)
	pizza := models.Pizza{StoreID: f.storeID, Name: "Bianca"}
	conn := f.client.DB()
	require.NoError(t, conn.Omit("Toppings").Create(&pizza).Error)
	require.NoError(t, conn.Create(&models.PizzaTopping{PizzaID: pizza.ID, ToppingID: tp.ID}).Error)

	require.NoError(t, f.svc.Delete(ctx, f.ownerID, f.storeID, tp.ID))

	var joins int64
	require.NoError(t, conn.Model(&models.PizzaTopping{}).Where("pizza_id = ?", pizza.ID).Count(&joins).Error)
	assert.Zero(t, joins)

	err = f.svc.Delete(ctx, f.ownerID, f.storeID, tp.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCountInStore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tp, err := f.svc.Create(ctx, f.ownerID, f.storeID, ToppingRequest{Name: "Chili"})
	require.NoError(t, err)

	n, err := f.repo.CountInStore(ctx, f.storeID, []uuid.UUID{tp.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.repo.CountInStore(ctx, uuid.New(), []uuid.UUID{tp.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}
