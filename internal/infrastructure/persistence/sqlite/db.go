// Package sqlite is a single-file store built on gorm and SQLite. It serves
// local development and the CLI when no Postgres is configured.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

// Store wraps the gorm handle and hands out repositories.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the schema.
// A nil log silences gorm.
func Open(path string, log *logger.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "yogaii.db"
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gl := gormlogger.Default.LogMode(gormlogger.Silent)
	if log != nil {
		gl = gormlogger.New(zap.NewStdLog(log.Zap()), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gl, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&activityModel{}, &profileModel{}, &achievementModel{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("sqlite: create dir %s: %w", dir, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Activities returns the activity repository.
func (s *Store) Activities() activity.Repository { return &ActivityRepository{db: s.db} }

// Profiles returns the profile repository.
func (s *Store) Profiles() streak.Repository { return &ProfileRepository{db: s.db} }

// Achievements returns the achievement progress repository.
func (s *Store) Achievements() achievement.Repository { return &AchievementRepository{db: s.db} }
