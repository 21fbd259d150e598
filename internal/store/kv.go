package store

import (
	"database/sql"
	"errors"
	"time"
)

// KV is the durable key-value contract the registry persists through. A
// value is a single serializable blob that survives restarts.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// SQLiteKV implements KV on top of the kv table.
type SQLiteKV struct {
	db *DB
}

// NewSQLiteKV creates a key-value store using the given database.
func NewSQLiteKV(db *DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

// Get returns the value stored under key, if any.
func (s *SQLiteKV) Get(key string) ([]byte, bool, error) {
	var value string
	err := s.db.sql.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteKV) Set(key string, value []byte) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		key, string(value), time.Now().Format(time.DateTime),
	)
	return err
}
