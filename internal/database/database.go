package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the store named by url. postgres:// and postgresql:// URLs use
// the PostgreSQL driver; sqlite:// URLs name a local database file.
func Connect(url string, debug bool) (*gorm.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database url must not be empty")
	}

	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return ConnectPostgres(url, gormConfig)
	case strings.HasPrefix(url, "sqlite://"):
		return ConnectSQLite(SQLitePath(url), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database url scheme in %q", redact(url))
	}
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite opens (and creates if needed) a SQLite database file.
func ConnectSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// SQLitePath extracts the file path from a sqlite URL. Three slashes name a
// path relative to the working directory, four an absolute one.
func SQLitePath(url string) string {
	path := strings.TrimPrefix(url, "sqlite://")
	if strings.HasPrefix(path, "/") {
		path = path[1:]
	}
	if path == "" {
		return "submissions.db"
	}
	return path
}

func redact(url string) string {
	if at := strings.LastIndex(url, "@"); at >= 0 {
		if scheme := strings.Index(url, "://"); scheme >= 0 && scheme < at {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
