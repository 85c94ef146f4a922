package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epsilon/internal/apperr"
)

func placeBid(f *fixture, orderID, userID string) (*PlacedBid, error) {
	return f.svc.PlaceBid(context.Background(), PlaceBidCommand{
		OrderID:       orderID,
		UserID:        userID,
		DeliveryPrice: 100,
		DeliveryTime:  f.clock.now.Add(2 * time.Hour).UnixMilli(),
	})
}

func TestPlaceBidAdmitted(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)

	placed, err := placeBid(f, o.ID, delivererUser.ID)
	require.NoError(t, err)

	assert.Equal(t, o.ID, placed.OrderID)
	assert.Equal(t, 100.0, placed.DeliveryPrice)
	assert.Equal(t, delivererUser.Name, placed.Deliverer.Name)

	stored, err := f.bids.ListByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, f.notifier.all(), "OrderReceivedBid "+o.ID+" "+placed.ID+" -> receiver")
}

func TestPlaceBidOrderMustExist(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)

	_, err := placeBid(f, "missing", delivererUser.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaceBidOrderMustBePending(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StateAccepted)

	_, err := placeBid(f, o.ID, delivererUser.ID)
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "Order was not in a pending state", err.Error())
}

func TestPlaceBidNoDuplicate(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)

	_, err := placeBid(f, o.ID, delivererUser.ID)
	require.NoError(t, err)

	_, err = placeBid(f, o.ID, delivererUser.ID)
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "User had already bid on order", err.Error())
}

func TestPlaceBidActiveBidLimit(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)

	// two undelivered bids on other orders fill both slots
	seedBid(t, f, "bid-a", "order-a", delivererUser.ID)
	seedBid(t, f, "bid-b", "order-b", delivererUser.ID)

	_, err := placeBid(f, o.ID, delivererUser.ID)
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "User has already got two active bids", err.Error())
}

func TestPlaceBidElapsedBidsDoNotCount(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)

	seedBid(t, f, "bid-a", "order-a", delivererUser.ID)
	seedBid(t, f, "bid-b", "order-b", delivererUser.ID)

	// one delivery time elapses; a slot frees up
	f.clock.now = f.clock.now.Add(3 * time.Hour)

	_, err := f.svc.PlaceBid(context.Background(), PlaceBidCommand{
		OrderID:       o.ID,
		UserID:        delivererUser.ID,
		DeliveryPrice: 100,
		DeliveryTime:  f.clock.now.Add(time.Hour).UnixMilli(),
	})
	assert.NoError(t, err)
}

func TestPlaceBidNoSelfBids(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)

	_, err := placeBid(f, o.ID, receiverUser.ID)
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "Users cannot bid on their own orders", err.Error())
}

func TestPlaceBidWindow(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePending)
	window := Window{
		Earliest: f.clock.now.Add(time.Hour),
		Latest:   f.clock.now.Add(3 * time.Hour),
	}
	o.DeliveryWindow = &window
	require.NoError(t, f.orders.Create(context.Background(), o))

	bidAt := func(at time.Time) error {
		_, err := f.svc.PlaceBid(context.Background(), PlaceBidCommand{
			OrderID:       o.ID,
			UserID:        delivererUser.ID,
			DeliveryPrice: 100,
			DeliveryTime:  at.UnixMilli(),
		})
		return err
	}

	err := bidAt(window.Earliest.Add(-time.Minute))
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "'deliveryTime' is too early", err.Error())

	err = bidAt(window.Latest.Add(time.Minute))
	require.ErrorIs(t, err, apperr.ErrAdmissionRejected)
	assert.Equal(t, "'deliveryTime' is too late", err.Error())

	assert.NoError(t, bidAt(window.Earliest), "window bounds are inclusive")
}
