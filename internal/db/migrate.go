package db

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
)

// Migrate creates or updates every table. With reset set, tables are dropped first.
func Migrate(db *gorm.DB, reset bool) error {
	if reset {
		logger.L.Warn("RESET_DB=true detected, dropping all tables")
		tables := model.All()
		for i := len(tables) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(tables[i]); err != nil {
				logger.L.Warn("failed to drop table (may not exist)", slog.String("error", err.Error()))
			}
		}
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
