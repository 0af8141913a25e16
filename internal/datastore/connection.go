package datastore

import (
	"fmt"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/conf"
	"github.com/diamondadamsteven/violin-engine/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DataStore wraps a pooled *gorm.DB connection and exposes the bulk-insert
// and stored-procedure operations the orchestrator's handlers call into.
type DataStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
}

// Open establishes the pooled database connection for the configured
// driver (mysql or sqlite) and applies connection-pool limits.
func Open(settings *conf.Settings) (*DataStore, error) {
	var dialector gorm.Dialector

	switch settings.Database.Driver {
	case "mysql":
		dialector = mysql.Open(settings.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(settings.Database.DSN)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Database.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	logLevel := logger.Warn
	if settings.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(200*time.Millisecond, logLevel),
	})
	if err != nil {
		return nil, errors.Newf("opening %s database: %v", settings.Database.Driver, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Newf("obtaining underlying sql.DB: %v", err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	maxOpen := settings.Database.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := settings.Database.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if settings.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(settings.Database.ConnMaxLifetime)
	}

	if settings.Database.Driver == "sqlite" {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, errors.Newf("setting sqlite WAL mode: %v", err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
		if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
			return nil, errors.Newf("setting sqlite busy_timeout: %v", err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
	}

	store := &DataStore{DB: db, Settings: settings}
	if err := store.autoMigrate(); err != nil {
		return nil, err
	}

	getLogger().Info("database opened", "driver", settings.Database.Driver)
	return store, nil
}

// Close releases the pooled database connection.
func (s *DataStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return errors.Newf("obtaining underlying sql.DB on close: %v", err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return sqlDB.Close()
}

func (s *DataStore) autoMigrate() error {
	err := s.DB.AutoMigrate(
		&RecordingConfigRow{},
		&WebsocketConnectionRow{},
		&WebsocketMessageRow{},
		&PreSplitAudioFrameRow{},
		&SplitAudioFrameRow{},
		&SpectralRow{},
		&PitchRow{},
		&NoteRow{},
		&VolumeAggregateRow{},
		&Volume10MSRow{},
		&Volume1MSRow{},
		&StepLogRow{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
