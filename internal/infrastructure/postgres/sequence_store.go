package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceStore implements the atomic counter backing the identifier
// sequencer. The upsert-and-return runs as one statement, so two concurrent
// callers can never see the same value.
type SequenceStore struct {
	db *sql.DB
}

func NewSequenceStore(db *sql.DB) *SequenceStore {
	return &SequenceStore{db: db}
}

func (s *SequenceStore) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequences (key, value) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`, key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence store: next %s: %w", key, err)
	}
	return value, nil
}
