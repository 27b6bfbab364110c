package enums

// MenuItemKind names the store-scoped records that carry a unique name.
type MenuItemKind string

const (
	MenuItemTopping MenuItemKind = "topping"
	MenuItemPizza   MenuItemKind = "pizza"
)

func (k MenuItemKind) String() string {
	return string(k)
}

func (k MenuItemKind) IsValid() bool {
	return k == MenuItemTopping || k == MenuItemPizza
}
