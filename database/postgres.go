package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type DBClient struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open connects to the database named by DATABASE_URL. postgres:// and
// postgresql:// URLs use lib/pq; sqlite:// URLs and bare file paths use the
// pure-Go SQLite driver.
func Open(databaseURL string) (*DBClient, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresDB(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return NewSQLiteDB(strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return NewSQLiteDB(databaseURL)
	}
}

func NewPostgresDB(dbURL string) (*DBClient, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return &DBClient{DB: db, Dialect: Postgres}, nil
}

// Migrate creates the session, event and lead tables when missing.
func (c *DBClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, c.Dialect.Schema()); err != nil {
		return fmt.Errorf("migrate %s schema: %w", c.Dialect, err)
	}
	return nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		err := c.DB.Close()
		if err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Printf("%s database connection closed.", c.Dialect)
		}
	}
}
