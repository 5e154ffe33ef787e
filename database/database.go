package database

import (
	"fmt"
	"time"

	"scanndine/config"
	"scanndine/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists everything AutoMigrate manages.
func Models() []any {
	return []any{
		&model.User{},
		&model.MenuCategory{},
		&model.MenuItem{},
		&model.Table{},
		&model.Order{},
		&model.OrderItem{},
		&model.Query{},
	}
}

// GormConfig is shared by every connection. Duplicate-key errors are
// translated so repositories can match gorm.ErrDuplicatedKey, and no
// cross-record foreign keys are created: records reference each other by
// id only.
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Open connects, pings and migrates the database.
func Open(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	d, err := dialector(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.GinMode != "release" {
		level = logger.Info
	}
	db, err := gorm.Open(d, GormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("driver", cfg.DBDriver).Info("database connected and migrated")
	return db, nil
}

// OpenMemory returns a migrated in-memory sqlite database. Each call gets
// its own isolated database.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// a second pooled connection would see a different empty database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}
