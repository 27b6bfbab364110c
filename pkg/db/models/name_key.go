package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// MenuNameKey is the case-folded form of a topping or pizza name. Unique
// indexes sit on this column because SQLite's lower() only folds ASCII.
func MenuNameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
