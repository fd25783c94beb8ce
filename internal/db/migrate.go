package db

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"classifieds/internal/model"
)

// Models lists every persisted collection in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Session{},
		&model.Ad{},
		&model.PaymentTransaction{},
	}
}

// Migrate creates or updates all tables.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops all tables. Missing tables are logged and skipped.
func Reset(gormDB *gorm.DB, logger *slog.Logger) {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := gormDB.Migrator().DropTable(models[i]); err != nil {
			logger.Warn("failed to drop table (may not exist)", slog.String("error", err.Error()))
		}
	}
}

// Open connects to the configured driver: "mysql" (default) or "sqlite".
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "", "mysql":
		return NewMySQL(dsn)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
