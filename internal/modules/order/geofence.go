// README: Geofence checks that advance an order on courier location reports.
package order

import (
	"context"

	"go.uber.org/zap"

	"epsilon/internal/geo"
	"epsilon/internal/types"
)

type ReportLocationCommand struct {
	OrderID  types.ID
	UserID   types.ID
	Position types.Coordinate
}

// ReportLocation persists the courier's position and fires at most one
// automatic transition. Both geofence checks evaluate against the state the
// order had when the report arrived, so a courier standing inside both
// fences still advances one step per report.
func (s *Service) ReportLocation(ctx context.Context, cmd ReportLocationCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetLocation(ctx, o.ID, cmd.Position); err != nil {
		return nil, err
	}
	if s.tracker != nil {
		if err := s.tracker.Track(ctx, cmd.UserID, cmd.Position); err != nil {
			s.log.Warn("courier position cache update failed",
				zap.String("user_id", cmd.UserID), zap.Error(err))
		}
	}

	if err := s.pickUpIfPossible(ctx, o, cmd.Position); err != nil {
		return nil, err
	}
	if err := s.deliverIfPossible(ctx, o, cmd.Position); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, o.ID)
}

func (s *Service) pickUpIfPossible(ctx context.Context, o *Order, pos types.Coordinate) error {
	if o.State != StateStarted || !o.PickupAddress.HasCoordinate() {
		return nil
	}
	if geo.DistanceMeters(pos, o.PickupAddress.Coordinate) >= s.config.GeofenceRadiusMeters {
		return nil
	}

	ok, err := s.store.UpdateState(ctx, o.ID, StateStarted, StatePickedUp)
	if err != nil {
		return err
	}
	if !ok {
		// Another report won the race; it also sent the notification.
		return nil
	}

	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return err
	}
	s.notifier.OrderPickedUp(ctx, o.ID, receiver)
	s.log.Info("order picked up", zap.String("order_id", o.ID))
	return nil
}

func (s *Service) deliverIfPossible(ctx context.Context, o *Order, pos types.Coordinate) error {
	if o.State != StatePickedUp || !o.DeliveryAddress.HasCoordinate() {
		return nil
	}
	if geo.DistanceMeters(pos, o.DeliveryAddress.Coordinate) >= s.config.GeofenceRadiusMeters {
		return nil
	}

	ok, err := s.store.UpdateState(ctx, o.ID, StatePickedUp, StateDelivered)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return err
	}
	s.notifier.OrderDelivered(ctx, o.ID, receiver)
	s.log.Info("order delivered", zap.String("order_id", o.ID))

	orderID, receiverID := o.ID, receiver.ID
	s.scheduler.Schedule(s.config.DeliveryReminder, func() {
		if err := s.deliveryReminder(context.Background(), orderID, receiverID); err != nil {
			s.log.Error("delivery reminder failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	})
	return nil
}
