// README: One-shot timer jobs armed by order transitions.
package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"epsilon/internal/types"
)

// TimerScheduler arms real one-shot timers. Fired timers self-disarm; a
// timer whose order has advanced in the meantime finds a stale state and
// does nothing.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// automaticCancellation fires a fixed delay after Accept. If the winning
// deliverer never started the order, the acceptance is rolled back and the
// order returned to the pending pool.
func (s *Service) automaticCancellation(ctx context.Context, orderID, bidID, delivererID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	deliverer, err := s.users.Get(ctx, delivererID)
	if err != nil {
		return err
	}
	if o.State != StateAccepted || o.AcceptedBid == nil || *o.AcceptedBid != bidID {
		// Cleared: the courier advanced the order before the timer fired.
		return nil
	}

	ok, err := s.store.ClearAccepted(ctx, orderID, bidID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.bids.Delete(ctx, bidID); err != nil {
		return err
	}

	s.notifier.OrderCancelledAutomatically(ctx, orderID, deliverer)
	s.log.Info("order cancelled automatically",
		zap.String("order_id", orderID), zap.String("deliverer_id", delivererID))
	return nil
}

// deliveryReminder fires a fixed delay after a geofenced delivery and nags
// the receiver if the order still has not been marked received.
func (s *Service) deliveryReminder(ctx context.Context, orderID, receiverID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	receiver, err := s.users.Get(ctx, receiverID)
	if err != nil {
		return err
	}
	if o.State == StateReceived {
		return nil
	}

	s.notifier.OrderDeliveredReminder(ctx, orderID, receiver)
	return nil
}
