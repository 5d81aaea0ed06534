// Package store persists small JSON records under string keys, the way a
// browser persists values in local storage.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("not found")

// DocStore keeps each record as a JSONB document in a single table.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(ctx context.Context, db *sql.DB) (*DocStore, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS records (
		id   TEXT PRIMARY KEY,
		data JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &DocStore{db: db}, nil
}

func (s *DocStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT json(data) FROM records WHERE id = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Put replaces the record under key. data must be a JSON document.
func (s *DocStore) Put(ctx context.Context, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("record %q is not valid JSON", key)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		key, string(data),
	)
	return err
}

func (s *DocStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, key)
	return err
}

// Ping reports whether the underlying database is reachable.
func (s *DocStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Memory is an in-process store. It is used when no database is configured
// and in tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
