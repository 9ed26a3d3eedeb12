package psql

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"browsekit/browsekit/config"
	"browsekit/browsekit/sources/psql/models"
	"browsekit/browsekit/utils/logging"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to postgres and migrates the batch history tables.
func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	logging.AppLogger.Info("connecting to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return Open(ctx, postgres.Open(cfg.DSN()))
}

// Open migrates the schema on any gorm dialector (sqlite in tests).
func Open(ctx context.Context, dialector gorm.Dialector) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models (automatic schema creation)
	err = db.WithContext(ctx).
		AutoMigrate(
			&models.BatchRun{},
			&models.BatchRunItem{},
		)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return &Database{DB: db}, nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
