// README: Order lifecycle coordinator: creation, accept, cancel, start,
// receive, and the collaborator contracts these operations depend on.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"epsilon/internal/apperr"
	"epsilon/internal/clock"
	"epsilon/internal/mail"
	"epsilon/internal/modules/bid"
	"epsilon/internal/modules/user"
	"epsilon/internal/types"
)

// Store is the order collection. State writes are conditional on the state
// observed by the guard, so racing transitions surface as conflicts instead
// of lost updates.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	SetAccepted(ctx context.Context, id, bidID types.ID, scheduled time.Time) (bool, error)
	ClearAccepted(ctx context.Context, id, bidID types.ID) (bool, error)
	UpdateState(ctx context.Context, id types.ID, from, to State) (bool, error)
	SetState(ctx context.Context, id types.ID, to State) error
	SetLocation(ctx context.Context, id types.ID, c types.Coordinate) error
}

type BidStore interface {
	Create(ctx context.Context, b *bid.Bid) error
	Get(ctx context.Context, id types.ID) (*bid.Bid, error)
	FindByOrderAndUser(ctx context.Context, orderID, userID types.ID) (*bid.Bid, error)
	ListByOrder(ctx context.Context, orderID types.ID) ([]bid.Bid, error)
	ListByUser(ctx context.Context, userID types.ID) ([]bid.Bid, error)
	Delete(ctx context.Context, id types.ID) error
}

type UserStore interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	ListActiveDeliverers(ctx context.Context, exclude types.ID) ([]user.User, error)
	AppendRating(ctx context.Context, id types.ID, rating float64) error
}

// Notifier pushes lifecycle events. Pushes are fire-and-forget; the notifier
// logs its own failures.
type Notifier interface {
	NewOrder(ctx context.Context, orderID types.ID, deliverers []user.User)
	OrderReceivedBid(ctx context.Context, orderID, bidID types.ID, receiver *user.User)
	OrderLost(ctx context.Context, losers []user.User)
	OrderWon(ctx context.Context, orderID, bidID types.ID, deliverer *user.User)
	OrderCancelled(ctx context.Context, orderID types.ID, receiver *user.User)
	OrderCancelledAutomatically(ctx context.Context, orderID types.ID, deliverer *user.User)
	OrderStarted(ctx context.Context, orderID types.ID, receiver *user.User)
	OrderPickedUp(ctx context.Context, orderID types.ID, receiver *user.User)
	OrderDelivered(ctx context.Context, orderID types.ID, receiver *user.User)
	OrderDeliveredReminder(ctx context.Context, orderID types.ID, receiver *user.User)
	OrderReceived(ctx context.Context, orderID, bidID types.ID, deliverer *user.User)
}

type Mailer interface {
	SendReceiptToReceiver(r mail.Receipt) error
	SendReceiptToDeliverer(r mail.Receipt) error
	SendReceiptToOperator(r mail.Receipt) error
}

// Settler authorises the platform's cut against the deliverer's stored card.
type Settler interface {
	Settle(ctx context.Context, orderID types.ID, deliveryPrice float64, cardRef string) error
}

// Scheduler arms one-shot jobs. Production uses time.AfterFunc; tests drive
// jobs by hand.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
}

// Tracker caches the latest courier position for dispatch queries.
type Tracker interface {
	Track(ctx context.Context, userID types.ID, c types.Coordinate) error
}

// Geocoder resolves an address name when no coordinates were supplied.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (types.Coordinate, error)
}

// Config carries the coordinator's tunables.
type Config struct {
	GeofenceRadiusMeters float64
	AutoCancelDelay      time.Duration
	DeliveryReminder     time.Duration
}

type Deps struct {
	Store     Store
	Bids      BidStore
	Users     UserStore
	Notifier  Notifier
	Mailer    Mailer
	Settler   Settler
	Scheduler Scheduler
	Tracker   Tracker
	Geocoder  Geocoder
	Clock     clock.Clock
	Config    Config
	Log       *zap.Logger
}

type Service struct {
	store     Store
	bids      BidStore
	users     UserStore
	notifier  Notifier
	mailer    Mailer
	settler   Settler
	scheduler Scheduler
	tracker   Tracker
	geocoder  Geocoder
	clock     clock.Clock
	config    Config
	log       *zap.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		store:     d.Store,
		bids:      d.Bids,
		users:     d.Users,
		notifier:  d.Notifier,
		mailer:    d.Mailer,
		settler:   d.Settler,
		scheduler: d.Scheduler,
		tracker:   d.Tracker,
		geocoder:  d.Geocoder,
		clock:     d.Clock,
		config:    d.Config,
		log:       d.Log,
	}
}

type CreateCommand struct {
	ReceiverID      types.ID
	Expensive       bool
	Description     string
	PaymentType     string
	Cost            float64
	DeliveryPrice   float64
	DeliveryWindow  *Window
	PickupAddress   types.Address
	DeliveryAddress types.Address
}

type AcceptCommand struct {
	OrderID types.ID
	BidID   types.ID
	UserID  types.ID
}

type CancelCommand struct {
	OrderID types.ID
	UserID  types.ID
}

type StartCommand struct {
	OrderID types.ID
	UserID  types.ID
}

type ReceiveCommand struct {
	OrderID types.ID
	UserID  types.ID
	Rating  *float64
}

// View is an order enriched with the receiver projection shown to the
// winning deliverer.
type View struct {
	*Order
	Receiver *user.ReceiverProfile `json:"receiver,omitempty"`
}

// Create stores a new pending order and notifies every other active
// deliverer. Addresses posted without coordinates are geocoded first.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	pickup, err := s.resolveAddress(ctx, cmd.PickupAddress)
	if err != nil {
		return nil, err
	}
	delivery, err := s.resolveAddress(ctx, cmd.DeliveryAddress)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:              newID(),
		ReceiverID:      cmd.ReceiverID,
		State:           StatePending,
		Expensive:       cmd.Expensive,
		Description:     cmd.Description,
		PaymentType:     cmd.PaymentType,
		Cost:            cmd.Cost,
		DeliveryPrice:   cmd.DeliveryPrice,
		DeliveryWindow:  cmd.DeliveryWindow,
		PickupAddress:   pickup,
		DeliveryAddress: delivery,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	deliverers, err := s.users.ListActiveDeliverers(ctx, cmd.ReceiverID)
	if err != nil {
		s.log.Warn("could not load deliverers to notify", zap.Error(err))
	} else {
		s.notifier.NewOrder(ctx, o.ID, deliverers)
	}
	return o, nil
}

// Get returns the order, with the receiver's contact projection attached
// when the requesting user holds the winning bid.
func (s *Service) Get(ctx context.Context, orderID, userID types.ID) (*View, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, o, userID)
}

// List returns every order, each enriched the same way Get enriches one.
func (s *Service) List(ctx context.Context, userID types.ID) ([]View, error) {
	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(orders))
	for i := range orders {
		v, err := s.view(ctx, &orders[i], userID)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, o *Order, userID types.ID) (*View, error) {
	v := &View{Order: o}
	if o.AcceptedBid == nil {
		return v, nil
	}
	b, err := s.bids.Get(ctx, *o.AcceptedBid)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return v, nil
	}
	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return nil, err
	}
	profile := user.NewReceiverProfile(receiver)
	v.Receiver = &profile
	return v, nil
}

// AcceptBid moves a pending order to Accepted, records the winning bid and
// its delivery time, notifies the winner, and arms automatic cancellation.
func (s *Service) AcceptBid(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.ReceiverID != cmd.UserID {
		return nil, apperr.InvalidTransition("User was not the owner of the order")
	}
	if o.State != StatePending {
		return nil, apperr.InvalidTransition("Order was not in the pending state")
	}

	b, err := s.bids.Get(ctx, cmd.BidID)
	if err != nil {
		return nil, err
	}
	if b.OrderID != o.ID {
		return nil, apperr.InvalidTransition("Order did not contain bid")
	}

	ok, err := s.store.SetAccepted(ctx, o.ID, b.ID, b.DeliveryTime)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("Order was no longer in the pending state")
	}

	deliverer, err := s.users.Get(ctx, b.UserID)
	if err != nil {
		return nil, err
	}
	s.notifier.OrderWon(ctx, o.ID, b.ID, deliverer)

	orderID, bidID, delivererID := o.ID, b.ID, deliverer.ID
	s.scheduler.Schedule(s.config.AutoCancelDelay, func() {
		if err := s.automaticCancellation(context.Background(), orderID, bidID, delivererID); err != nil {
			s.log.Error("automatic cancellation failed",
				zap.String("order_id", orderID), zap.Error(err))
		}
	})

	return s.store.Get(ctx, o.ID)
}

// Cancel lets the winning deliverer back out of an accepted order. The bid
// is deleted and the order returns to the pending pool.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, *user.User, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if o.State != StateAccepted || o.AcceptedBid == nil {
		return nil, nil, apperr.InvalidTransition("Order was not in the accepted state")
	}

	b, err := s.bids.Get(ctx, *o.AcceptedBid)
	if err != nil {
		return nil, nil, err
	}
	if b.UserID != cmd.UserID {
		return nil, nil, apperr.InvalidTransition("User was not the winner of the order")
	}

	ok, err := s.store.ClearAccepted(ctx, o.ID, b.ID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperr.Conflict("Order was no longer in the accepted state")
	}
	if err := s.bids.Delete(ctx, b.ID); err != nil {
		return nil, nil, err
	}

	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return nil, nil, err
	}
	s.notifier.OrderCancelled(ctx, o.ID, receiver)

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	deliverer, err := s.users.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, nil, err
	}
	return updated, deliverer, nil
}

// Start moves an accepted order into delivery. Losing bids are removed and
// their deliverers told the order went to someone else.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.State != StateAccepted || o.AcceptedBid == nil {
		return nil, apperr.InvalidTransition("Order was not in the accepted state")
	}

	accepted, err := s.bids.Get(ctx, *o.AcceptedBid)
	if err != nil {
		return nil, err
	}
	if accepted.UserID != cmd.UserID {
		return nil, apperr.InvalidTransition("User was not the winner of the order")
	}

	ok, err := s.store.UpdateState(ctx, o.ID, StateAccepted, StateStarted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("Order was no longer in the accepted state")
	}

	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return nil, err
	}
	s.notifier.OrderStarted(ctx, o.ID, receiver)

	if err := s.dropLosingBids(ctx, o.ID, accepted.ID); err != nil {
		s.log.Warn("losing bid cleanup failed", zap.String("order_id", o.ID), zap.Error(err))
	}

	return s.store.Get(ctx, o.ID)
}

func (s *Service) dropLosingBids(ctx context.Context, orderID, acceptedBidID types.ID) error {
	all, err := s.bids.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	var losers []user.User
	for _, b := range all {
		if b.ID == acceptedBidID {
			continue
		}
		u, err := s.users.Get(ctx, b.UserID)
		if err != nil {
			return err
		}
		losers = append(losers, *u)
		if err := s.bids.Delete(ctx, b.ID); err != nil {
			return err
		}
	}
	if len(losers) > 0 {
		s.notifier.OrderLost(ctx, losers)
	}
	return nil
}

// Receive completes the order. Settlement must succeed before anything else
// is committed; when it fails the state change is undone and the gateway's
// message returned untouched.
func (s *Service) Receive(ctx context.Context, cmd ReceiveCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.ReceiverID != cmd.UserID {
		return nil, apperr.InvalidTransition("User was not the owner of the order")
	}
	if !CanReceive(o.State) {
		return nil, apperr.InvalidTransition("Order was in neither the started, picked up, or delivered state")
	}
	if o.AcceptedBid == nil {
		return nil, apperr.InvalidTransition("Order had no accepted bid")
	}

	b, err := s.bids.Get(ctx, *o.AcceptedBid)
	if err != nil {
		return nil, err
	}
	deliverer, err := s.users.Get(ctx, b.UserID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.Get(ctx, o.ReceiverID)
	if err != nil {
		return nil, err
	}

	entryState := o.State
	ok, err := s.store.UpdateState(ctx, o.ID, entryState, StateReceived)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("Order state changed during receive")
	}

	if err := s.settler.Settle(ctx, o.ID, b.DeliveryPrice, deliverer.CreditCard); err != nil {
		if revertErr := s.store.SetState(ctx, o.ID, entryState); revertErr != nil {
			s.log.Error("state revert after settlement failure failed",
				zap.String("order_id", o.ID), zap.Error(revertErr))
		}
		return nil, err
	}

	if cmd.Rating != nil {
		if err := s.users.AppendRating(ctx, deliverer.ID, *cmd.Rating); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	updatedDeliverer, err := s.users.Get(ctx, deliverer.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sendReceipts(updated, b, receiver, updatedDeliverer); err != nil {
		return nil, apperr.MailFailure("%s", err.Error())
	}
	s.notifier.OrderReceived(ctx, updated.ID, b.ID, updatedDeliverer)

	return updated, nil
}

func (s *Service) sendReceipts(o *Order, b *bid.Bid, receiver, deliverer *user.User) error {
	deliveredAt := b.DeliveryTime
	if o.ScheduledDeliveryTime != nil {
		deliveredAt = *o.ScheduledDeliveryTime
	}
	receipt := mail.Receipt{
		Receiver:      receiver,
		Deliverer:     deliverer,
		Description:   o.Description,
		PickupName:    o.PickupAddress.Name,
		DeliveryName:  o.DeliveryAddress.Name,
		DeliveryPrice: b.DeliveryPrice,
		DeliveredAt:   deliveredAt,
	}

	var g errgroup.Group
	g.Go(func() error { return s.mailer.SendReceiptToReceiver(receipt) })
	g.Go(func() error { return s.mailer.SendReceiptToDeliverer(receipt) })
	g.Go(func() error { return s.mailer.SendReceiptToOperator(receipt) })
	return g.Wait()
}

func (s *Service) resolveAddress(ctx context.Context, a types.Address) (types.Address, error) {
	if a.HasCoordinate() {
		return a, nil
	}
	if s.geocoder == nil {
		return a, nil
	}
	c, err := s.geocoder.Geocode(ctx, a.Name)
	if err != nil {
		return types.Address{}, apperr.BadRequest("Could not resolve address '%s'", a.Name)
	}
	a.Coordinate = c
	return a, nil
}

func newID() types.ID {
	var b [10]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
