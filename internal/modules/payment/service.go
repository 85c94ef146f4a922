// README: Payment settlement coordinator (cut computation, idempotent
// payment creation, two-step authorisation).
package payment

import (
	"context"

	"go.uber.org/zap"

	"epsilon/internal/apperr"
	"epsilon/internal/types"
)

// Store is the payments idempotency collection.
type Store interface {
	FindByOrder(ctx context.Context, orderID types.ID) (*Payment, error)
	Create(ctx context.Context, p *Payment) error
}

// Gateway is the slice of the QuickPay contract settlement depends on.
type Gateway interface {
	CreatePayment(ctx context.Context, orderID types.ID, amount float64) (string, error)
	CreateCardToken(ctx context.Context, cardRef string) (string, error)
	AuthorisePayment(ctx context.Context, paymentID, cardToken string, amount float64) error
}

type Service struct {
	store         Store
	gateway       Gateway
	cutPercentage float64
	log           *zap.Logger
}

func NewService(store Store, gateway Gateway, cutPercentage float64, log *zap.Logger) *Service {
	return &Service{store: store, gateway: gateway, cutPercentage: cutPercentage, log: log}
}

// Cut returns the platform's share of a delivery price.
func (s *Service) Cut(deliveryPrice float64) float64 {
	return deliveryPrice * s.cutPercentage
}

// Settle authorises the platform's cut of the delivery price against the
// deliverer's stored card. The whole sequence either succeeds or fails;
// the caller compensates the order state on failure.
//
// A payment record is created at most once per order: an existing record's
// gateway id is reused, so a repeated Receive never produces a second
// authorisation target.
func (s *Service) Settle(ctx context.Context, orderID types.ID, deliveryPrice float64, cardRef string) error {
	cut := s.Cut(deliveryPrice)

	paymentID, err := s.ensurePayment(ctx, orderID, cut)
	if err != nil {
		return err
	}

	token, err := s.gateway.CreateCardToken(ctx, cardRef)
	if err != nil {
		return apperr.PaymentFailure("%s", err.Error())
	}

	if err := s.gateway.AuthorisePayment(ctx, paymentID, token, cut); err != nil {
		s.log.Warn("payment authorisation failed",
			zap.String("order_id", orderID), zap.Error(err))
		return apperr.PaymentFailure("%s", err.Error())
	}

	s.log.Info("payment authorised",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
		zap.Float64("amount", cut))
	return nil
}

func (s *Service) ensurePayment(ctx context.Context, orderID types.ID, amount float64) (string, error) {
	existing, err := s.store.FindByOrder(ctx, orderID)
	if err != nil {
		return "", apperr.PaymentFailure("Error checking existing payments: %s", err.Error())
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := s.gateway.CreatePayment(ctx, orderID, amount)
	if err != nil {
		return "", apperr.PaymentFailure("%s", err.Error())
	}
	if err := s.store.Create(ctx, &Payment{ID: id, OrderID: orderID}); err != nil {
		return "", apperr.PaymentFailure("Error storing payment: %s", err.Error())
	}
	return id, nil
}
