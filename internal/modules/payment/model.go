// README: Payment idempotency record and card input.
package payment

import "epsilon/internal/types"

// Payment links a gateway payment id to an order. At most one exists per
// order; it is the settlement idempotency guard.
type Payment struct {
	ID      string   `json:"id"`
	OrderID types.ID `json:"orderId"`
}

// CreditCard is the raw card input uploaded to the gateway. It is never
// persisted; only the gateway's card reference is stored on the user.
type CreditCard struct {
	Number string `json:"cardNumber"`
	Month  string `json:"month"`
	Year   string `json:"year"`
	CVC    string `json:"cvc"`
}
