package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmptySlot signals a load from a slot that has never been saved.
var ErrEmptySlot = errors.New("state slot is empty")

// SlotStore keeps named blobs in a local SQLite file. Each slot holds one
// serialized value; Save overwrites it in full.
type SlotStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the slot database at path.
func Open(path string) (*SlotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	s := &SlotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SlotStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS state_slots (
		name TEXT PRIMARY KEY,
		blob TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("migrate state db: %w", err)
	}
	return nil
}

// Save overwrites the named slot with blob.
func (s *SlotStore) Save(ctx context.Context, name string, blob []byte) error {
	query := `
	INSERT INTO state_slots (name, blob, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, name, string(blob), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save slot %q: %w", name, err)
	}
	return nil
}

// Load returns the blob last saved under name, or ErrEmptySlot.
func (s *SlotStore) Load(ctx context.Context, name string) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT blob FROM state_slots WHERE name = ?", name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrEmptySlot
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %q: %w", name, err)
	}
	return []byte(blob), nil
}

// Clear deletes the named slot. Clearing an absent slot is not an error.
func (s *SlotStore) Clear(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM state_slots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("clear slot %q: %w", name, err)
	}
	return nil
}

// Ping verifies the underlying database is reachable.
func (s *SlotStore) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database.
func (s *SlotStore) Close() error {
	return s.db.Close()
}
