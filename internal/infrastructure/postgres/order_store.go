package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/photoworks/printshop/app/internal/domain/order"
)

// OrderStore persists orders. Nested blocks (items, pricing, payment,
// fulfillment, cleanup) are stored as JSON documents; the columns queried by
// the application (number, user, status, idempotency key, version) are
// first-class.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, number, user_id, idempotency_key, shipping_state, status,
	items, pricing, payment, fulfillment, photo_cleanup, version, created_at, updated_at`

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	items, pricing, payment, fulfillment, cleanup, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, o.ID, o.Number, o.UserID, o.IdempotencyKey, o.ShippingState, string(o.Status),
		items, pricing, payment, fulfillment, cleanup, o.Version, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("order store: insert: %w", err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *OrderStore) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number)
	return scanOrder(row)
}

// Update performs the optimistic write: the version in the WHERE clause must
// still match, and is bumped in the same statement.
func (s *OrderStore) Update(ctx context.Context, o *domain.Order) error {
	items, pricing, payment, fulfillment, cleanup, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, items = $4, pricing = $5, payment = $6, fulfillment = $7,
		    photo_cleanup = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`, o.ID, o.Version, string(o.Status), items, pricing, payment, fulfillment, cleanup, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order store: update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order store: update result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("order store: update check: %w", err)
		}
		if exists {
			return domain.ErrVersionConflict
		}
		return domain.ErrNotFound
	}

	o.Version++
	return nil
}

func (s *OrderStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("order store: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order store: delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *OrderStore) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("order store: list by status: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *OrderStore) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
	return scanOrder(row)
}

func marshalOrderDocs(o *domain.Order) (items, pricing, payment, fulfillment, cleanup []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("order store: encode items: %w", err)
	}
	if pricing, err = json.Marshal(o.Pricing); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("order store: encode pricing: %w", err)
	}
	if payment, err = json.Marshal(o.Payment); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("order store: encode payment: %w", err)
	}
	if fulfillment, err = json.Marshal(o.Fulfillment); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("order store: encode fulfillment: %w", err)
	}
	if cleanup, err = json.Marshal(o.PhotoCleanup); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("order store: encode cleanup: %w", err)
	}
	return items, pricing, payment, fulfillment, cleanup, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		idemKey sql.NullString
		status  string
		items   []byte
		pricing []byte
		payment []byte
		fulfill []byte
		cleanup []byte
	)

	err := row.Scan(&o.ID, &o.Number, &o.UserID, &idemKey, &o.ShippingState, &status,
		&items, &pricing, &payment, &fulfill, &cleanup, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order store: scan: %w", err)
	}

	o.IdempotencyKey = idemKey.String
	o.Status = domain.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order store: decode items: %w", err)
	}
	if err := json.Unmarshal(pricing, &o.Pricing); err != nil {
		return nil, fmt.Errorf("order store: decode pricing: %w", err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return nil, fmt.Errorf("order store: decode payment: %w", err)
	}
	if err := json.Unmarshal(fulfill, &o.Fulfillment); err != nil {
		return nil, fmt.Errorf("order store: decode fulfillment: %w", err)
	}
	if err := json.Unmarshal(cleanup, &o.PhotoCleanup); err != nil {
		return nil, fmt.Errorf("order store: decode cleanup: %w", err)
	}
	return &o, nil
}
