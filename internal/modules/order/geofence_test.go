package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epsilon/internal/apperr"
	"epsilon/internal/types"
)

// ~100 m north of the seeded pickup address.
var nearPickup = types.Coordinate{Latitude: 55.6770, Longitude: 12.5683}

// ~100 m north of the seeded delivery address.
var nearDelivery = types.Coordinate{Latitude: 55.6870, Longitude: 12.5783}

var farAway = types.Coordinate{Latitude: 56.0, Longitude: 13.0}

func report(f *fixture, orderID types.ID, pos types.Coordinate) (*Order, error) {
	return f.svc.ReportLocation(context.Background(), ReportLocationCommand{
		OrderID:  orderID,
		UserID:   delivererUser.ID,
		Position: pos,
	})
}

func TestReportLocationPicksUpNearPickup(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StateStarted)

	updated, err := report(f, o.ID, nearPickup)
	require.NoError(t, err)

	assert.Equal(t, StatePickedUp, updated.State)
	require.NotNil(t, updated.Location)
	assert.Equal(t, nearPickup, *updated.Location)
	assert.Contains(t, f.notifier.all(), "OrderPickedUp order-1 -> receiver")
}

func TestReportLocationDeliversNearDelivery(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StatePickedUp)

	updated, err := report(f, o.ID, nearDelivery)
	require.NoError(t, err)

	assert.Equal(t, StateDelivered, updated.State)
	assert.Contains(t, f.notifier.all(), "OrderDelivered order-1 -> receiver")
	require.Len(t, f.scheduler.delays, 1)
	assert.Equal(t, 60*time.Minute, f.scheduler.delays[0], "delivery arms the reminder")
}

func TestReportLocationFarAwayOnlyPersistsPosition(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StateStarted)

	updated, err := report(f, o.ID, farAway)
	require.NoError(t, err)

	assert.Equal(t, StateStarted, updated.State)
	require.NotNil(t, updated.Location)
	assert.Empty(t, f.notifier.all())
	assert.Len(t, f.tracker.tracked, 1, "position still lands in the courier cache")
}

func TestReportLocationAtMostOneTransitionPerReport(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StateStarted)

	// collapse both geofences onto one point
	o.DeliveryAddress.Coordinate = o.PickupAddress.Coordinate
	require.NoError(t, f.orders.Create(context.Background(), o))

	updated, err := report(f, o.ID, nearPickup)
	require.NoError(t, err)
	assert.Equal(t, StatePickedUp, updated.State, "the delivery check sees the entry state, not the new one")

	updated, err = report(f, o.ID, nearPickup)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, updated.State)
}

func TestReportLocationWithoutCoordinatesIsNoop(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)
	o := seedOrder(t, f, StateStarted)
	o.PickupAddress.Coordinate = types.Coordinate{}
	require.NoError(t, f.orders.Create(context.Background(), o))

	updated, err := report(f, o.ID, nearPickup)
	require.NoError(t, err)
	assert.Equal(t, StateStarted, updated.State)
	assert.Empty(t, f.notifier.all())
}

func TestReportLocationMissingOrderFails(t *testing.T) {
	f := newFixture(receiverUser, delivererUser)

	_, err := report(f, "missing", nearPickup)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReportLocationIgnoresWrongStates(t *testing.T) {
	for _, state := range []State{StatePending, StateAccepted, StateReceived} {
		t.Run(string(state), func(t *testing.T) {
			f := newFixture(receiverUser, delivererUser)
			o := seedOrder(t, f, state)

			updated, err := report(f, o.ID, nearPickup)
			require.NoError(t, err)
			assert.Equal(t, state, updated.State)
		})
	}
}
