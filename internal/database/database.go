package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the database named by url. postgres:// and postgresql://
// urls use the postgres driver, anything else is treated as a sqlite path or
// dsn.
func NewDatabase(url string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		dialector = postgres.Open(url)
	} else {
		if path := sqlitePath(url); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return nil, fmt.Errorf("error creating database directory: %w", err)
			}
		}
		dialector = sqlite.Open(url)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if isSqlite(db) {
		// In-memory sqlite databases exist per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("error getting sqlite connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			slog.Error("error enabling foreign keys for SQLite", "error", err)
		}
	}

	slog.Info("connected to database", "dialect", db.Dialector.Name())
	return db, nil
}

func sqlitePath(url string) string {
	path := strings.TrimPrefix(url, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	return path
}

func isSqlite(db *gorm.DB) bool {
	name := db.Dialector.Name()
	return name == "sqlite" || name == "sqlite3"
}

type DatabaseInfo struct {
	Dialect  string
	Database string
	Version  string
}

// Describe reports which database the service is connected to.
func Describe(db *gorm.DB) (DatabaseInfo, error) {
	info := DatabaseInfo{Dialect: db.Dialector.Name()}

	var err error
	if isSqlite(db) {
		info.Database = "main"
		err = db.Raw("SELECT sqlite_version()").Scan(&info.Version).Error
	} else {
		err = db.Raw("SELECT current_database()").Scan(&info.Database).Error
		if err == nil {
			err = db.Raw("SHOW server_version").Scan(&info.Version).Error
		}
	}
	if err != nil {
		return info, fmt.Errorf("error querying database info: %w", err)
	}
	return info, nil
}
