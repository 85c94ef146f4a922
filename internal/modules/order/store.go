// README: Order store backed by PostgreSQL. State writes are conditional on
// the expected prior state.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"epsilon/internal/apperr"
	"epsilon/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const orderColumns = `id, receiver_id, state, expensive, description, payment_type,
        cost, delivery_price, window_earliest, window_latest,
        pickup_name, pickup_lat, pickup_lng,
        delivery_name, delivery_lat, delivery_lng,
        accepted_bid, scheduled_delivery_time, location_lat, location_lng, created_at`

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	var windowEarliest, windowLatest *time.Time
	if o.DeliveryWindow != nil {
		windowEarliest = &o.DeliveryWindow.Earliest
		windowLatest = &o.DeliveryWindow.Latest
	}
	pickupLat, pickupLng := coordColumns(o.PickupAddress)
	deliveryLat, deliveryLng := coordColumns(o.DeliveryAddress)

	_, err := s.db.Exec(ctx, `
        INSERT INTO orders (
            id, receiver_id, state, expensive, description, payment_type,
            cost, delivery_price, window_earliest, window_latest,
            pickup_name, pickup_lat, pickup_lng,
            delivery_name, delivery_lat, delivery_lng,
            created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10,
            $11, $12, $13,
            $14, $15, $16,
            $17
        )`,
		o.ID, o.ReceiverID, string(o.State), o.Expensive, o.Description, o.PaymentType,
		o.Cost, o.DeliveryPrice, windowEarliest, windowLatest,
		o.PickupAddress.Name, pickupLat, pickupLng,
		o.DeliveryAddress.Name, deliveryLat, deliveryLng,
		o.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE id = $1`, id,
	)
	return scanOrder(row)
}

func (s *PGStore) ListAll(ctx context.Context) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// SetAccepted moves a pending order to Accepted in one conditional write.
// Returns false when the order was no longer pending.
func (s *PGStore) SetAccepted(ctx context.Context, id, bidID types.ID, scheduled time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET state = $1, accepted_bid = $2, scheduled_delivery_time = $3
        WHERE id = $4 AND state = $5`,
		string(StateAccepted), bidID, scheduled, id, string(StatePending),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClearAccepted undoes an acceptance, conditional on the same bid still
// being the accepted one.
func (s *PGStore) ClearAccepted(ctx context.Context, id, bidID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET state = $1, accepted_bid = NULL, scheduled_delivery_time = NULL
        WHERE id = $2 AND state = $3 AND accepted_bid = $4`,
		string(StatePending), id, string(StateAccepted), bidID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateState(ctx context.Context, id types.ID, from, to State) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET state = $1
        WHERE id = $2 AND state = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetState writes the state unconditionally. Only the settlement revert uses
// it; everything else goes through the conditional writes.
func (s *PGStore) SetState(ctx context.Context, id types.ID, to State) error {
	_, err := s.db.Exec(ctx, `
        UPDATE orders
        SET state = $1
        WHERE id = $2`,
		string(to), id,
	)
	return err
}

func (s *PGStore) SetLocation(ctx context.Context, id types.ID, c types.Coordinate) error {
	_, err := s.db.Exec(ctx, `
        UPDATE orders
        SET location_lat = $1, location_lng = $2
        WHERE id = $3`,
		c.Latitude, c.Longitude, id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o                            Order
		state                        string
		windowEarliest, windowLatest *time.Time
		pickupLat, pickupLng         *float64
		deliveryLat, deliveryLng     *float64
		acceptedBid                  *string
		locationLat, locationLng     *float64
	)
	err := row.Scan(
		&o.ID, &o.ReceiverID, &state, &o.Expensive, &o.Description, &o.PaymentType,
		&o.Cost, &o.DeliveryPrice, &windowEarliest, &windowLatest,
		&o.PickupAddress.Name, &pickupLat, &pickupLng,
		&o.DeliveryAddress.Name, &deliveryLat, &deliveryLng,
		&acceptedBid, &o.ScheduledDeliveryTime, &locationLat, &locationLng, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Order could not be found")
	}
	if err != nil {
		return nil, err
	}

	o.State = State(state)
	if windowEarliest != nil && windowLatest != nil {
		o.DeliveryWindow = &Window{Earliest: *windowEarliest, Latest: *windowLatest}
	}
	if pickupLat != nil && pickupLng != nil {
		o.PickupAddress.Coordinate = types.Coordinate{Latitude: *pickupLat, Longitude: *pickupLng}
	}
	if deliveryLat != nil && deliveryLng != nil {
		o.DeliveryAddress.Coordinate = types.Coordinate{Latitude: *deliveryLat, Longitude: *deliveryLng}
	}
	if acceptedBid != nil {
		o.AcceptedBid = acceptedBid
	}
	if locationLat != nil && locationLng != nil {
		o.Location = &types.Coordinate{Latitude: *locationLat, Longitude: *locationLng}
	}
	return &o, nil
}

func coordColumns(a types.Address) (*float64, *float64) {
	if !a.HasCoordinate() {
		return nil, nil
	}
	lat, lng := a.Coordinate.Latitude, a.Coordinate.Longitude
	return &lat, &lng
}
