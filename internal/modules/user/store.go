// README: User store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

const userColumns = `id, name, email, mobile, description, avatar, credit_card,
       active_deliverer, ratings, device_token, device_type`

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1`, id,
	)
	return scanUser(row)
}

func (s *Store) Create(ctx context.Context, u *User) error {
	var token, dtype *string
	if u.Device != nil {
		token, dtype = &u.Device.Token, &u.Device.Type
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO users (
            id, name, email, mobile, description, avatar, credit_card,
            active_deliverer, ratings, device_token, device_type
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.Email, u.Mobile, nullable(u.Description), nullable(u.Avatar),
		nullable(u.CreditCard), u.ActiveDeliverer, u.Ratings, token, dtype,
	)
	return err
}

// ListActiveDeliverers returns every user flagged as an active deliverer,
// excluding the given user (an order's creator is not notified of it).
func (s *Store) ListActiveDeliverers(ctx context.Context, exclude types.ID) ([]User, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE active_deliverer AND id <> $1`, exclude,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) AppendRating(ctx context.Context, id types.ID, rating float64) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE users
        SET ratings = array_append(ratings, $1)
        WHERE id = $2`, rating, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User could not be found")
	}
	return nil
}

// LookupCredential resolves a login token. Expiry is checked by the caller
// against its clock.
func (s *Store) LookupCredential(ctx context.Context, token string) (*Credential, error) {
	row := s.db.QueryRow(ctx, `
        SELECT token, user_id, expires
        FROM credentials
        WHERE token = $1`, token,
	)
	var c Credential
	err := row.Scan(&c.Token, &c.UserID, &c.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Credential could not be found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var description, avatar, creditCard, deviceToken, deviceType *string
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Mobile, &description, &avatar, &creditCard,
		&u.ActiveDeliverer, &u.Ratings, &deviceToken, &deviceType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User could not be found")
	}
	if err != nil {
		return nil, err
	}
	u.Description = deref(description)
	u.Avatar = deref(avatar)
	u.CreditCard = deref(creditCard)
	if deviceToken != nil && deviceType != nil {
		u.Device = &Device{Token: *deviceToken, Type: *deviceType}
	}
	return &u, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
