package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
)

// uniqueIndexDDL mirrors the unique indexes created by the goose migrations.
// The syntax is accepted by both Postgres and SQLite.
var uniqueIndexDDL = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ConstraintToppingName + ` ON toppings (store_id, name_key)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ConstraintPizzaName + ` ON pizzas (store_id, name_key)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ConstraintMemberEmail + ` ON store_members (store_id, lower(email))`,
}

// AutoMigrate creates the schema from the models. It is only used for SQLite
// (dev and tests); Postgres is managed by goose.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range uniqueIndexDDL {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
