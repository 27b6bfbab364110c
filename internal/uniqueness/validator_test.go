package uniqueness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
)

type stubLookup struct {
	named     []NamedRecord
	sets      []ToppingSet
	err       error
	gotName   string
	gotKind   enums.MenuItemKind
	gotExcl   *uuid.UUID
	nameCalls int
}

func (s *stubLookup) FindByName(_ context.Context, kind enums.MenuItemKind, _ uuid.UUID, name string, excludeID *uuid.UUID) ([]NamedRecord, error) {
	s.nameCalls++
	s.gotKind = kind
	s.gotName = name
	s.gotExcl = excludeID
	if s.err != nil {
		return nil, s.err
	}
	var out []NamedRecord
	for _, rec := range s.named {
		if excludeID != nil && rec.ID == *excludeID {
			continue
		}
		if strings.EqualFold(rec.Name, name) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubLookup) ToppingSets(context.Context, uuid.UUID, *uuid.UUID) ([]ToppingSet, error) {
	return s.sets, s.err
}

func TestValidateUniqueNameTrimsBeforeLookup(t *testing.T) {
	lookup := &stubLookup{named: []NamedRecord{{ID: uuid.New(), Name: "Pepperoni"}}}
	v, err := NewValidator(lookup)
	require.NoError(t, err)

	err = v.ValidateUniqueName(context.Background(), enums.MenuItemTopping, uuid.New(), "  pepperoni ", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateName))
	assert.Equal(t, `A topping named "pepperoni" already exists in this store`, pkgerrors.As(err).Message())
	assert.Equal(t, "pepperoni", lookup.gotName)
}

func TestValidateUniqueNameMessageKeepsQuotesRaw(t *testing.T) {
	lookup := &stubLookup{named: []NamedRecord{{ID: uuid.New(), Name: `Bob's "Big" One`}}}
	v, _ := NewValidator(lookup)

	err := v.ValidateUniqueName(context.Background(), enums.MenuItemPizza, uuid.New(), `Bob's "Big" One`, nil)
	require.Error(t, err)
	assert.Equal(t, `A pizza named "Bob's "Big" One" already exists in this store`, pkgerrors.As(err).Message())
}

func TestValidateUniqueNameExcludesSelf(t *testing.T) {
	self := uuid.New()
	lookup := &stubLookup{named: []NamedRecord{{ID: self, Name: "Supreme"}}}
	v, _ := NewValidator(lookup)

	err := v.ValidateUniqueName(context.Background(), enums.MenuItemPizza, uuid.New(), "SUPREME", &self)
	require.NoError(t, err)
	require.NotNil(t, lookup.gotExcl)
	assert.Equal(t, self, *lookup.gotExcl)
}

func TestValidateUniqueNameRejectsBlank(t *testing.T) {
	lookup := &stubLookup{}
	v, _ := NewValidator(lookup)

	err := v.ValidateUniqueName(context.Background(), enums.MenuItemPizza, uuid.New(), "   ", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, lookup.nameCalls)
}

func TestValidateUniqueNameWrapsLookupFailure(t *testing.T) {
	v, _ := NewValidator(&stubLookup{err: errors.New("db down")})
	err := v.ValidateUniqueName(context.Background(), enums.MenuItemTopping, uuid.New(), "Ham", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestValidateUniquePizzaToppings(t *testing.T) {
	pepperoni, mushrooms := uuid.New(), uuid.New()
	supreme := ToppingSet{PizzaID: uuid.New(), PizzaName: "Supreme", ToppingIDs: []uuid.UUID{pepperoni, mushrooms}}
	plain := ToppingSet{PizzaID: uuid.New(), PizzaName: "Plain", ToppingIDs: nil}

	v, _ := NewValidator(&stubLookup{sets: []ToppingSet{supreme, plain}})
	ctx := context.Background()
	store := uuid.New()

	err := v.ValidateUniquePizzaToppings(ctx, store, []uuid.UUID{mushrooms, pepperoni, pepperoni}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateToppingSet))
	assert.Contains(t, pkgerrors.As(err).Message(), "(Supreme)")

	err = v.ValidateUniquePizzaToppings(ctx, store, nil, nil)
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Message(), "(Plain)")

	assert.NoError(t, v.ValidateUniquePizzaToppings(ctx, store, []uuid.UUID{pepperoni}, nil))
	assert.NoError(t, v.ValidateUniquePizzaToppings(ctx, store, []uuid.UUID{pepperoni, mushrooms}, &supreme.PizzaID))
}

func TestNewValidatorRequiresLookup(t *testing.T) {
	_, err := NewValidator(nil)
	assert.Error(t, err)
}
