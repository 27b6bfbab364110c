// Package uniqueness guards topping and pizza mutations against duplicate
// names and duplicate topping combinations within a store.
//
// The checks are read-then-decide and are not isolated from the write that
// follows; the unique indexes on (store_id, name_key) are the backstop for
// names. Topping sets have no storage backstop.
package uniqueness

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mozz-online/mozz-backend/pkg/enums"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
)

// NamedRecord is a store-scoped record matched by name.
type NamedRecord struct {
	ID   uuid.UUID
	Name string
}

// ToppingSet is a pizza together with its attached topping ids.
type ToppingSet struct {
	PizzaID    uuid.UUID
	PizzaName  string
	ToppingIDs []uuid.UUID
}

// Lookup is the read surface the validators depend on.
type Lookup interface {
	// FindByName returns records of kind in storeID whose name equals name
	// case-insensitively, excluding excludeID when set.
	FindByName(ctx context.Context, kind enums.MenuItemKind, storeID uuid.UUID, name string, excludeID *uuid.UUID) ([]NamedRecord, error)
	// ToppingSets returns every pizza in storeID except excludePizzaID.
	ToppingSets(ctx context.Context, storeID uuid.UUID, excludePizzaID *uuid.UUID) ([]ToppingSet, error)
}

type Validator struct {
	lookup Lookup
}

func NewValidator(lookup Lookup) (*Validator, error) {
	if lookup == nil {
		return nil, fmt.Errorf("uniqueness lookup required")
	}
	return &Validator{lookup: lookup}, nil
}

// ValidateUniqueName fails with CodeDuplicateName when another record of kind
// in the store already uses name (case-insensitive, trimmed).
func (v *Validator) ValidateUniqueName(ctx context.Context, kind enums.MenuItemKind, storeID uuid.UUID, name string, excludeID *uuid.UUID) error {
	if !kind.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeInternal, "unknown menu item kind %q", kind)
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s name is required", kind)
	}

	matches, err := v.lookup.FindByName(ctx, kind, storeID, normalized, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check name uniqueness")
	}
	if len(matches) > 0 {
		return DuplicateNameError(kind, normalized)
	}
	return nil
}

// ValidateUniquePizzaToppings fails with CodeDuplicateToppingSet when another
// pizza in the store has exactly the proposed set of topping ids. The empty set
// is comparable like any other.
func (v *Validator) ValidateUniquePizzaToppings(ctx context.Context, storeID uuid.UUID, toppingIDs []uuid.UUID, excludePizzaID *uuid.UUID) error {
	proposed := DedupeIDs(toppingIDs)

	existing, err := v.lookup.ToppingSets(ctx, storeID, excludePizzaID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check topping set uniqueness")
	}
	for _, candidate := range existing {
		if excludePizzaID != nil && candidate.PizzaID == *excludePizzaID {
			continue
		}
		if SameSet(candidate.ToppingIDs, proposed) {
			return DuplicateToppingSetError(candidate.PizzaName).WithDetails(map[string]any{
				"pizzaId":   candidate.PizzaID.String(),
				"pizzaName": candidate.PizzaName,
			})
		}
	}
	return nil
}

// DuplicateNameError builds the conflict returned for a taken name.
func DuplicateNameError(kind enums.MenuItemKind, name string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeDuplicateName, "A %s named \"%s\" already exists in this store", kind, name)
}

// DuplicateToppingSetError builds the conflict naming the existing pizza.
func DuplicateToppingSetError(pizzaName string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeDuplicateToppingSet, "A pizza with these exact toppings already exists (%s)", pizzaName)
}
