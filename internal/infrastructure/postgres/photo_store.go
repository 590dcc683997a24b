package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	domain "github.com/photoworks/printshop/app/internal/domain/photo"
)

// PhotoStore persists photo metadata. The order-reference list is a JSON
// document; the cleanup flags are first-class columns so the executor's work
// queue is a single indexed query.
type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

const photoColumns = `id, user_id, file_name, size_bytes, blob_id,
	is_ordered, ordered_in, last_ordered_at,
	is_deleted, is_pending_deletion, deletion_scheduled_for,
	uploaded_at, updated_at`

func (s *PhotoStore) Insert(ctx context.Context, p *domain.Photo) error {
	orderedIn, err := json.Marshal(p.OrderInfo.OrderedIn)
	if err != nil {
		return fmt.Errorf("photo store: encode ordered_in: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO photos (`+photoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.UserID, p.FileName, p.SizeBytes, p.BlobID,
		p.OrderInfo.IsOrdered, orderedIn, p.OrderInfo.LastOrderedAt,
		p.Flags.IsDeleted, p.Flags.IsPendingDeletion, p.Flags.DeletionScheduledFor,
		p.UploadedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("photo store: duplicate id %s", p.ID)
	}
	if err != nil {
		return fmt.Errorf("photo store: insert: %w", err)
	}
	return nil
}

func (s *PhotoStore) Get(ctx context.Context, id string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	return scanPhoto(row)
}

func (s *PhotoStore) Update(ctx context.Context, p *domain.Photo) error {
	orderedIn, err := json.Marshal(p.OrderInfo.OrderedIn)
	if err != nil {
		return fmt.Errorf("photo store: encode ordered_in: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE photos
		SET is_ordered = $2, ordered_in = $3, last_ordered_at = $4,
		    is_deleted = $5, is_pending_deletion = $6, deletion_scheduled_for = $7,
		    updated_at = $8
		WHERE id = $1
	`, p.ID, p.OrderInfo.IsOrdered, orderedIn, p.OrderInfo.LastOrderedAt,
		p.Flags.IsDeleted, p.Flags.IsPendingDeletion, p.Flags.DeletionScheduledFor,
		p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("photo store: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("photo store: update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PhotoStore) ListByIDs(ctx context.Context, ids []string) ([]*domain.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("photo store: list by ids: %w", err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

func (s *PhotoStore) ListDueForCleanup(ctx context.Context, before time.Time) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE is_pending_deletion AND NOT is_deleted AND deletion_scheduled_for <= $1
		ORDER BY deletion_scheduled_for
	`, before)
	if err != nil {
		return nil, fmt.Errorf("photo store: list due for cleanup: %w", err)
	}
	defer rows.Close()
	return collectPhotos(rows)
}

func collectPhotos(rows *sql.Rows) ([]*domain.Photo, error) {
	var out []*domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPhoto(row rowScanner) (*domain.Photo, error) {
	var (
		p             domain.Photo
		orderedIn     []byte
		lastOrderedAt sql.NullTime
		scheduledFor  sql.NullTime
	)

	err := row.Scan(&p.ID, &p.UserID, &p.FileName, &p.SizeBytes, &p.BlobID,
		&p.OrderInfo.IsOrdered, &orderedIn, &lastOrderedAt,
		&p.Flags.IsDeleted, &p.Flags.IsPendingDeletion, &scheduledFor,
		&p.UploadedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("photo store: scan: %w", err)
	}

	if err := json.Unmarshal(orderedIn, &p.OrderInfo.OrderedIn); err != nil {
		return nil, fmt.Errorf("photo store: decode ordered_in: %w", err)
	}
	if lastOrderedAt.Valid {
		p.OrderInfo.LastOrderedAt = &lastOrderedAt.Time
	}
	if scheduledFor.Valid {
		p.Flags.DeletionScheduledFor = &scheduledFor.Time
	}
	return &p, nil
}
