// Package store persists users, sounds and mixes with gorm.
package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/osa030/sleepmix/internal/infra/config"
	"github.com/osa030/sleepmix/internal/infra/logger"
)

// Store is the persistence collaborator of the playback session.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.StoreConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.Newf("unknown database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database handle")
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, log: logger.Component("store")}
	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s.log.Info().Msgf("store: opened: driver=%s", cfg.Driver)
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&User{}, &Sound{}, &Mix{}, &MixSound{}); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
