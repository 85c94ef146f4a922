// README: Bid record for an order.
package bid

import (
	"time"

	"epsilon/internal/types"
)

// Bid is a deliverer's proposal to fulfil an order at a price and time.
// A (order, user) pair holds at most one bid.
type Bid struct {
	ID            types.ID  `json:"id"`
	OrderID       types.ID  `json:"orderId"`
	UserID        types.ID  `json:"-"`
	DeliveryPrice float64   `json:"deliveryPrice"`
	DeliveryTime  time.Time `json:"deliveryTime"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Active reports whether the bid still occupies one of the bidder's two
// bid slots: its proposed delivery time has not yet elapsed.
func (b *Bid) Active(now time.Time) bool {
	return !b.DeliveryTime.Before(now)
}
