package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/todo-app/internal/config"
)

// DB wraps the connection pool together with the driver that opened it, so
// repositories can write '?' placeholders once and run on every dialect.
type DB struct {
	*sql.DB
	Driver string
}

// DSN builds the data source name for the configured driver.
func DSN(cfg config.Config) string {
	switch cfg.DBDriver {
	case "pgx":
		return cfg.DatabaseURL
	case "sqlite3":
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.DBPath)
	default:
		auth := cfg.DBUser
		if cfg.DBPass != "" {
			auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		// clientFoundRows=true -> RowsAffected counts matched rows like the other drivers
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			auth, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
}

// Open connects to the database and verifies the connection.
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	if driver == "sqlite3" {
		// a single connection keeps ":memory:" databases shared across queries
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, Driver: driver}, nil
}

// OpenMemory opens a private in-memory SQLite database with the schema
// applied.  Tests across packages use it as their store.
func OpenMemory() (*DB, error) {
	db, err := Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Rebind rewrites '?' placeholders into the driver's native form.
func (db *DB) Rebind(q string) string {
	if db.Driver != "pgx" {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
