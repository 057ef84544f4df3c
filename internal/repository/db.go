package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"legal-timer/internal/model"
)

// defaultCategories is the practice-area taxonomy seeded on first boot.
var defaultCategories = []model.Category{
	{Name: "Contract Review", Color: "#6366f1"},
	{Name: "Legal Research", Color: "#8b5cf6"},
	{Name: "Compliance", Color: "#ec4899"},
	{Name: "Litigation", Color: "#ef4444"},
	{Name: "Corporate", Color: "#f59e0b"},
}

// NewDB opens a SQLite database, runs migrations and seeds reference data.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "legal_timer.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Task{}, &model.Session{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	// Store-level guarantee of the one-open-session-per-user invariant.
	// AutoMigrate cannot express a partial index, so raw DDL.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_user_open
		 ON sessions(user_id) WHERE end_time IS NULL`,
	).Error; err != nil {
		return nil, fmt.Errorf("create open-session index: %w", err)
	}

	if err := seedCategories(db); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	return db, nil
}

func seedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	categories := make([]model.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	return db.Create(&categories).Error
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
