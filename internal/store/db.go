package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection backing a session's credentials.db.
// It holds the authenticated account identity between runs; chat history
// is never persisted here.
type DB struct {
	*sql.DB
}

// Open creates the SQLite connection with WAL mode and recommended
// pragmas. The database holds a handful of rows and has one writer (the
// session lock keeps other processes out), so a single connection is
// plenty.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}
