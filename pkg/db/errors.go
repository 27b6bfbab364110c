package db

import (
	"errors"
	"strings"

	jackcpgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// Unique indexes backing the menu and membership invariants.
const (
	ConstraintToppingName = "ux_toppings_store_name"
	ConstraintPizzaName   = "ux_pizzas_store_name"
	ConstraintMemberEmail = "ux_store_members_store_email"
	ConstraintUserEmail   = "ux_users_email"
)

// IsUniqueViolation reports whether err is a unique constraint violation from
// Postgres (pgx, pgconn v1 or lib/pq) or SQLite. When constraintName is set the
// violation must reference that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgUniqueViolation && matchesConstraint(pgxErr.ConstraintName, pgxErr.Message, constraintName)
	}
	var legacyErr *jackcpgconn.PgError
	if errors.As(err, &legacyErr) {
		return legacyErr.Code == pgUniqueViolation && matchesConstraint(legacyErr.ConstraintName, legacyErr.Message, constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesConstraint(pqErr.Constraint, pqErr.Message, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName) || sqliteColumnsMatch(msg, constraintName)
}

func matchesConstraint(name, message, want string) bool {
	if want == "" {
		return true
	}
	return name == want || strings.Contains(message, want)
}

// SQLite reports plain column uniques by column list rather than index name.
var sqliteConstraintColumns = map[string]string{
	ConstraintUserEmail:   "users.email",
	ConstraintToppingName: "toppings.name_key",
	ConstraintPizzaName:   "pizzas.name_key",
}

func sqliteColumnsMatch(msg, constraintName string) bool {
	column, ok := sqliteConstraintColumns[constraintName]
	return ok && strings.Contains(msg, column)
}
