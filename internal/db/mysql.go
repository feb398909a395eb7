package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

// Config is the GORM configuration shared by every dialect.
// Orders may outlive the product they reference, so no foreign keys are created.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:                                   NewGormLogger(),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}
