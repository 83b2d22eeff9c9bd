package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB opens or creates a SQLite database at path. SQLite allows a
// single writer, so the pool is capped at one connection and a busy timeout
// covers other processes holding the file lock.
func NewSQLiteDB(path string) (*DBClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite (ping failed): %w", err)
	}

	log.Printf("Opened SQLite database at %s", path)
	return &DBClient{DB: db, Dialect: SQLite}, nil
}
