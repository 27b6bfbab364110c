package uniqueness

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeName trims surrounding whitespace. Case folding happens in the query.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// DedupeIDs returns ids with duplicates removed, preserving first occurrence.
func DedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameSet reports whether a and b contain the same ids, ignoring order and
// duplicates. Two empty collections are equal.
func SameSet(a, b []uuid.UUID) bool {
	left := toSet(a)
	right := toSet(b)
	if len(left) != len(right) {
		return false
	}
	for id := range left {
		if _, ok := right[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
