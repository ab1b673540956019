package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, key)
);`

// SQLiteStore implements Backend on a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a SQLite database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key in namespace
func (s *SQLiteStore) Get(namespace, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespaceOrDefault(namespace), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put inserts or replaces the value under key in namespace
func (s *SQLiteStore) Put(namespace, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		namespaceOrDefault(namespace), key, value,
	)
	return err
}

// Delete removes key from namespace
func (s *SQLiteStore) Delete(namespace, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM kv WHERE namespace = ? AND key = ?`,
		namespaceOrDefault(namespace), key,
	)
	return err
}

// DeleteAll removes every key of namespace
func (s *SQLiteStore) DeleteAll(namespace string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ?`, namespaceOrDefault(namespace))
	return err
}
