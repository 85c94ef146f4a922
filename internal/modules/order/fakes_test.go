package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"epsilon/internal/apperr"
	"epsilon/internal/mail"
	"epsilon/internal/modules/bid"
	"epsilon/internal/modules/user"
	"epsilon/internal/types"
)

type memOrders struct {
	mu sync.Mutex
	m  map[types.ID]*Order
}

func newMemOrders() *memOrders {
	return &memOrders{m: map[types.ID]*Order{}}
}

func (s *memOrders) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.m[o.ID] = &cp
	return nil
}

func (s *memOrders) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, apperr.NotFound("Order could not be found")
	}
	cp := *o
	return &cp, nil
}

func (s *memOrders) ListAll(_ context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.m {
		out = append(out, *o)
	}
	return out, nil
}

func (s *memOrders) SetAccepted(_ context.Context, id, bidID types.ID, scheduled time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok || o.State != StatePending {
		return false, nil
	}
	o.State = StateAccepted
	b := bidID
	o.AcceptedBid = &b
	t := scheduled
	o.ScheduledDeliveryTime = &t
	return true, nil
}

func (s *memOrders) ClearAccepted(_ context.Context, id, bidID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok || o.State != StateAccepted || o.AcceptedBid == nil || *o.AcceptedBid != bidID {
		return false, nil
	}
	o.State = StatePending
	o.AcceptedBid = nil
	o.ScheduledDeliveryTime = nil
	return true, nil
}

func (s *memOrders) UpdateState(_ context.Context, id types.ID, from, to State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok || o.State != from {
		return false, nil
	}
	o.State = to
	return true, nil
}

func (s *memOrders) SetState(_ context.Context, id types.ID, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return apperr.NotFound("Order could not be found")
	}
	o.State = to
	return nil
}

func (s *memOrders) SetLocation(_ context.Context, id types.ID, c types.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return apperr.NotFound("Order could not be found")
	}
	cp := c
	o.Location = &cp
	return nil
}

type memBids struct {
	mu sync.Mutex
	m  map[types.ID]*bid.Bid
}

func newMemBids() *memBids {
	return &memBids{m: map[types.ID]*bid.Bid{}}
}

func (s *memBids) Create(_ context.Context, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.m {
		if other.OrderID == b.OrderID && other.UserID == b.UserID {
			return bid.ErrDuplicate
		}
	}
	cp := *b
	s.m[b.ID] = &cp
	return nil
}

func (s *memBids) Get(_ context.Context, id types.ID) (*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[id]
	if !ok {
		return nil, apperr.NotFound("Bid could not be found")
	}
	cp := *b
	return &cp, nil
}

func (s *memBids) FindByOrderAndUser(_ context.Context, orderID, userID types.ID) (*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.m {
		if b.OrderID == orderID && b.UserID == userID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memBids) ListByOrder(_ context.Context, orderID types.ID) ([]bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bid.Bid
	for _, b := range s.m {
		if b.OrderID == orderID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memBids) ListByUser(_ context.Context, userID types.ID) ([]bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bid.Bid
	for _, b := range s.m {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memBids) Delete(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

type memUsers struct {
	mu sync.Mutex
	m  map[types.ID]*user.User
}

func newMemUsers(users ...*user.User) *memUsers {
	s := &memUsers{m: map[types.ID]*user.User{}}
	for _, u := range users {
		cp := *u
		s.m[u.ID] = &cp
	}
	return s
}

func (s *memUsers) Get(_ context.Context, id types.ID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return nil, apperr.NotFound("User could not be found")
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) ListActiveDeliverers(_ context.Context, exclude types.ID) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []user.User
	for _, u := range s.m {
		if u.ID != exclude && u.ActiveDeliverer {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memUsers) AppendRating(_ context.Context, id types.ID, rating float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[id]
	if !ok {
		return apperr.NotFound("User could not be found")
	}
	u.Ratings = append(u.Ratings, rating)
	return nil
}

// recNotifier records event lines like "OrderWon order-1 bid-1 -> deliverer".
type recNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recNotifier) record(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf(format, args...))
}

func (n *recNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recNotifier) NewOrder(_ context.Context, orderID types.ID, deliverers []user.User) {
	n.record("NewOrder %s to %d", orderID, len(deliverers))
}

func (n *recNotifier) OrderReceivedBid(_ context.Context, orderID, bidID types.ID, receiver *user.User) {
	n.record("OrderReceivedBid %s %s -> %s", orderID, bidID, receiver.ID)
}

func (n *recNotifier) OrderLost(_ context.Context, losers []user.User) {
	n.record("OrderLost to %d", len(losers))
}

func (n *recNotifier) OrderWon(_ context.Context, orderID, bidID types.ID, deliverer *user.User) {
	n.record("OrderWon %s %s -> %s", orderID, bidID, deliverer.ID)
}

func (n *recNotifier) OrderCancelled(_ context.Context, orderID types.ID, receiver *user.User) {
	n.record("OrderCancelled %s -> %s", orderID, receiver.ID)
}

func (n *recNotifier) OrderCancelledAutomatically(_ context.Context, orderID types.ID, deliverer *user.User) {
	n.record("OrderCancelledAutomatically %s -> %s", orderID, deliverer.ID)
}

func (n *recNotifier) OrderStarted(_ context.Context, orderID types.ID, receiver *user.User) {
	n.record("OrderStarted %s -> %s", orderID, receiver.ID)
}

func (n *recNotifier) OrderPickedUp(_ context.Context, orderID types.ID, receiver *user.User) {
	n.record("OrderPickedUp %s -> %s", orderID, receiver.ID)
}

func (n *recNotifier) OrderDelivered(_ context.Context, orderID types.ID, receiver *user.User) {
	n.record("OrderDelivered %s -> %s", orderID, receiver.ID)
}

func (n *recNotifier) OrderDeliveredReminder(_ context.Context, orderID types.ID, receiver *user.User) {
	n.record("OrderDeliveredReminder %s -> %s", orderID, receiver.ID)
}

func (n *recNotifier) OrderReceived(_ context.Context, orderID, bidID types.ID, deliverer *user.User) {
	n.record("OrderReceived %s %s -> %s", orderID, bidID, deliverer.ID)
}

type fakeMailer struct {
	mu        sync.Mutex
	receiver  int
	deliverer int
	operator  int
	err       error
}

func (m *fakeMailer) SendReceiptToReceiver(mail.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.receiver++
	return nil
}

func (m *fakeMailer) SendReceiptToDeliverer(mail.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deliverer++
	return nil
}

func (m *fakeMailer) SendReceiptToOperator(mail.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.operator++
	return nil
}

type fakeSettler struct {
	calls []string
	err   error
}

func (s *fakeSettler) Settle(_ context.Context, orderID types.ID, deliveryPrice float64, cardRef string) error {
	s.calls = append(s.calls, fmt.Sprintf("%s %.2f %s", orderID, deliveryPrice, cardRef))
	return s.err
}

// manualScheduler captures jobs so tests fire timers deterministically.
type manualScheduler struct {
	delays []time.Duration
	jobs   []func()
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) {
	s.delays = append(s.delays, d)
	s.jobs = append(s.jobs, fn)
}

func (s *manualScheduler) fire(i int) { s.jobs[i]() }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTracker struct {
	tracked []string
}

func (t *fakeTracker) Track(_ context.Context, userID types.ID, c types.Coordinate) error {
	t.tracked = append(t.tracked, fmt.Sprintf("%s %.4f %.4f", userID, c.Latitude, c.Longitude))
	return nil
}

type fixture struct {
	svc       *Service
	orders    *memOrders
	bids      *memBids
	users     *memUsers
	notifier  *recNotifier
	mailer    *fakeMailer
	settler   *fakeSettler
	scheduler *manualScheduler
	tracker   *fakeTracker
	clock     *fakeClock
}

func newFixture(users ...*user.User) *fixture {
	f := &fixture{
		orders:    newMemOrders(),
		bids:      newMemBids(),
		users:     newMemUsers(users...),
		notifier:  &recNotifier{},
		mailer:    &fakeMailer{},
		settler:   &fakeSettler{},
		scheduler: &manualScheduler{},
		tracker:   &fakeTracker{},
		clock:     &fakeClock{now: time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(Deps{
		Store:     f.orders,
		Bids:      f.bids,
		Users:     f.users,
		Notifier:  f.notifier,
		Mailer:    f.mailer,
		Settler:   f.settler,
		Scheduler: f.scheduler,
		Tracker:   f.tracker,
		Clock:     f.clock,
		Config: Config{
			GeofenceRadiusMeters: 250,
			AutoCancelDelay:      15 * time.Minute,
			DeliveryReminder:     60 * time.Minute,
		},
		Log: zap.NewNop(),
	})
	return f
}
