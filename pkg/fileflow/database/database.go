package database

import (
	"fmt"

	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the record store and migrates the shared_images table.
// TranslateError is required: the unique index on code is reported as
// gorm.ErrDuplicatedKey and the registry relies on that.
func Connect(connStr string) (*gorm.DB, error) {
	if connStr == "" {
		return nil, fmt.Errorf("failed to connect to database: no connection string configured")
	}
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Artifact{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
