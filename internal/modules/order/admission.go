// README: Bid admission rules.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"epsilon/internal/apperr"
	"epsilon/internal/modules/bid"
	"epsilon/internal/modules/user"
)

// maxActiveBids caps how many undelivered jobs a deliverer can commit to.
const maxActiveBids = 2

type PlaceBidCommand struct {
	OrderID       string
	UserID        string
	DeliveryPrice float64
	DeliveryTime  int64 // unix milliseconds
}

// PlacedBid is the admitted bid plus the bidder projection shown to the
// receiver.
type PlacedBid struct {
	bid.Bid
	Deliverer user.DelivererProfile `json:"deliverer"`
}

// PlaceBid admits a bid proposal. The rules run in a fixed sequence so a
// proposal failing several rules reports the same one every time: order
// pending, no duplicate, bid-slot free, no self-bid, inside the window.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*PlacedBid, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.State != StatePending {
		return nil, apperr.AdmissionRejected("Order was not in a pending state")
	}

	existing, err := s.bids.FindByOrderAndUser(ctx, o.ID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AdmissionRejected("User had already bid on order")
	}

	userBids, err := s.bids.ListByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	active := 0
	for _, b := range userBids {
		if b.Active(now) {
			active++
		}
	}
	if active >= maxActiveBids {
		return nil, apperr.AdmissionRejected("User has already got two active bids")
	}

	if o.ReceiverID == cmd.UserID {
		return nil, apperr.AdmissionRejected("Users cannot bid on their own orders")
	}

	deliveryTime := millisToTime(cmd.DeliveryTime)
	if o.DeliveryWindow != nil {
		if deliveryTime.Before(o.DeliveryWindow.Earliest) {
			return nil, apperr.AdmissionRejected("'deliveryTime' is too early")
		}
		if deliveryTime.After(o.DeliveryWindow.Latest) {
			return nil, apperr.AdmissionRejected("'deliveryTime' is too late")
		}
	}

	b := &bid.Bid{
		ID:            uuid.NewString(),
		OrderID:       o.ID,
		UserID:        cmd.UserID,
		DeliveryPrice: cmd.DeliveryPrice,
		DeliveryTime:  deliveryTime,
		CreatedAt:     now,
	}
	if err := s.bids.Create(ctx, b); err != nil {
		// Two racing proposals from the same user: the store's unique pair
		// constraint admits exactly one.
		if errors.Is(err, bid.ErrDuplicate) {
			return nil, apperr.AdmissionRejected("User had already bid on order")
		}
		return nil, err
	}

	bidder, err := s.users.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err == nil {
		s.notifier.OrderReceivedBid(ctx, o.ID, b.ID, receiver)
	} else {
		s.log.Warn("could not notify receiver of bid",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	return &PlacedBid{Bid: *b, Deliverer: user.NewDelivererProfile(bidder)}, nil
}

// ListBids returns the order's bids with bidder projections. Only the
// order's owner may see them.
func (s *Service) ListBids(ctx context.Context, orderID, userID string) ([]PlacedBid, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ReceiverID != userID {
		return nil, apperr.Unauthorized("User does not own the order")
	}

	all, err := s.bids.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PlacedBid, 0, len(all))
	for _, b := range all {
		bidder, err := s.users.Get(ctx, b.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, PlacedBid{Bid: b, Deliverer: user.NewDelivererProfile(bidder)})
	}
	return out, nil
}

func (s *Service) GetBid(ctx context.Context, bidID string) (*bid.Bid, error) {
	return s.bids.Get(ctx, bidID)
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
