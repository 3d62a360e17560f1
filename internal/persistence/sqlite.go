package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

const slowQueryThreshold = 200 * time.Millisecond

// SQLite wraps the embedded help-desk database.
type SQLite struct {
	DB *gorm.DB
}

// NewSQLite opens the database file in WAL mode. SQL traces are written
// through log, and only when logLevel is "debug"; otherwise gorm reports
// slow queries and errors.
func NewSQLite(cfg config.SQLiteConfig, logLevel string, log *zap.Logger) (*SQLite, error) {
	dsn := cfg.Path
	if dsn != ":memory:" {
		dsn += "?_journal_mode=WAL"
	}

	gormLog, err := newGormLogger(logLevel, log)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("sqlite database opened", zap.String("path", cfg.Path))
	return &SQLite{DB: db}, nil
}

// newGormLogger sends gorm output to zap instead of gorm's default stdout
// writer. SQL traces are emitted at debug, slow queries and errors at warn.
func newGormLogger(logLevel string, log *zap.Logger) (gormlogger.Interface, error) {
	level, zapLevel := gormlogger.Warn, zapcore.WarnLevel
	if strings.EqualFold(strings.TrimSpace(logLevel), "debug") {
		level, zapLevel = gormlogger.Info, zapcore.DebugLevel
	}
	writer, err := zap.NewStdLogAt(log.Named("gorm"), zapLevel)
	if err != nil {
		return nil, fmt.Errorf("gorm logger: %w", err)
	}
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	}), nil
}

// Ping verifies the underlying connection.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite database not configured")
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s == nil || s.DB == nil {
		return
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
