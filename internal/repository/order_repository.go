package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			reference VARCHAR(255) PRIMARY KEY,
			state VARCHAR(50) NOT NULL,
			previous_state VARCHAR(50) NOT NULL DEFAULT '',
			total NUMERIC(20, 8) NOT NULL DEFAULT 0,
			currency VARCHAR(10) NOT NULL DEFAULT '',
			billing_email VARCHAR(255) NOT NULL DEFAULT '',
			paid_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state)`,
		`CREATE TABLE IF NOT EXISTS order_notes (
			id BIGSERIAL PRIMARY KEY,
			order_reference VARCHAR(255) NOT NULL REFERENCES orders(reference) ON DELETE CASCADE,
			note TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_notes_reference ON order_notes(order_reference, id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *OrderRepository) Lookup(ctx context.Context, reference string) (*models.Order, error) {
	var (
		order  models.Order
		state  string
		paidAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT reference, state, previous_state, total, currency, billing_email, paid_at, created_at, updated_at
		FROM orders WHERE reference = $1
	`, reference).Scan(&order.Reference, &state, &order.PreviousState, &order.Total, &order.Currency,
		&order.BillingEmail, &paidAt, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup order %s: %w", reference, err)
	}

	if parsed, ok := models.ParseOrderState(state); ok {
		order.State = parsed
	} else {
		order.State = models.OrderState(state)
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	return &order, nil
}

// Transition is a no-op when the order is already in state.
func (r *OrderRepository) Transition(ctx context.Context, order *models.Order, state models.OrderState) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET state = $1, previous_state = state, updated_at = NOW()
		WHERE reference = $2 AND state <> $1
	`, state, order.Reference)
	if err != nil {
		return false, fmt.Errorf("transition order %s: %w", order.Reference, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	order.PreviousState = string(order.State)
	order.State = state
	return true, nil
}

// MarkPaymentComplete records the payment time once; later calls keep the
// first value.
func (r *OrderRepository) MarkPaymentComplete(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET paid_at = $1, updated_at = NOW()
		WHERE reference = $2 AND paid_at IS NULL
	`, now, order.Reference)
	if err != nil {
		return fmt.Errorf("mark order %s paid: %w", order.Reference, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		order.PaidAt = &now
	}
	return nil
}

// AddNote skips the insert when the latest note of the order has the same text.
func (r *OrderRepository) AddNote(ctx context.Context, order *models.Order, text string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_notes (order_reference, note)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM (
				SELECT note FROM order_notes WHERE order_reference = $1 ORDER BY id DESC LIMIT 1
			) latest WHERE latest.note = $2
		)
	`, order.Reference, text)
	if err != nil {
		return fmt.Errorf("add note to order %s: %w", order.Reference, err)
	}
	return nil
}

func (r *OrderRepository) Notes(ctx context.Context, reference string) ([]models.OrderNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_reference, note, created_at
		FROM order_notes WHERE order_reference = $1 ORDER BY id
	`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.OrderNote
	for rows.Next() {
		var n models.OrderNote
		if err := rows.Scan(&n.ID, &n.Reference, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
