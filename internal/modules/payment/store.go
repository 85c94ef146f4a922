// README: Payment store backed by PostgreSQL with a unique order constraint.
package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"epsilon/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// FindByOrder returns nil without error when the order has no payment yet.
func (s *PGStore) FindByOrder(ctx context.Context, orderID types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, order_id
        FROM payments
        WHERE order_id = $1`, orderID,
	)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the idempotency record. The unique constraint on order_id
// closes the check-then-create gap: a concurrent insert wins and this one
// becomes a no-op.
func (s *PGStore) Create(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO payments (id, order_id)
        VALUES ($1, $2)
        ON CONFLICT (order_id) DO NOTHING`,
		p.ID, p.OrderID,
	)
	return err
}
