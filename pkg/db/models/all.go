package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Store{},
		&StoreMember{},
		&Topping{},
		&Pizza{},
		&PizzaTopping{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
