// README: Bid store backed by PostgreSQL.
package bid

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"epsilon/internal/apperr"
	"epsilon/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ErrDuplicate reports a second bid by the same user on the same order.
// The unique constraint on (order_id, user_id) backs the admission rule even
// when two placements race.
var ErrDuplicate = errors.New("duplicate bid")

const bidColumns = `id, order_id, user_id, delivery_price, delivery_time, created_at`

func (s *Store) Create(ctx context.Context, b *Bid) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO bids (id, order_id, user_id, delivery_price, delivery_time, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.OrderID, b.UserID, b.DeliveryPrice, b.DeliveryTime, b.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Bid, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+bidColumns+`
        FROM bids
        WHERE id = $1`, id,
	)
	return scanBid(row)
}

// FindByOrderAndUser returns nil without error when the pair has no bid.
func (s *Store) FindByOrderAndUser(ctx context.Context, orderID, userID types.ID) (*Bid, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+bidColumns+`
        FROM bids
        WHERE order_id = $1 AND user_id = $2`, orderID, userID,
	)
	b, err := scanBid(row)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

func (s *Store) ListByOrder(ctx context.Context, orderID types.ID) ([]Bid, error) {
	return s.list(ctx, `
        SELECT `+bidColumns+`
        FROM bids
        WHERE order_id = $1
        ORDER BY created_at`, orderID)
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID) ([]Bid, error) {
	return s.list(ctx, `
        SELECT `+bidColumns+`
        FROM bids
        WHERE user_id = $1
        ORDER BY created_at`, userID)
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM bids WHERE id = $1`, id)
	return err
}

func (s *Store) list(ctx context.Context, query string, arg any) ([]Bid, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*Bid, error) {
	var b Bid
	err := row.Scan(&b.ID, &b.OrderID, &b.UserID, &b.DeliveryPrice, &b.DeliveryTime, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Bid could not be found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
