// README: User aggregate, device registration, and outward-facing projections.
package user

import (
	"time"

	"epsilon/internal/types"
)

// Device is the push-notification registration for a user's phone.
type Device struct {
	Token string `json:"token"`
	Type  string `json:"type"` // Development or Production
}

// User is a requester and potential deliverer. Its order set is the orders
// table keyed by receiver id; its bid set is the bids table keyed by user id.
type User struct {
	ID              types.ID  `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Mobile          string    `json:"mobile"`
	Description     string    `json:"description,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	CreditCard      string    `json:"-"` // payment gateway card reference
	ActiveDeliverer bool      `json:"activeDeliverer"`
	Ratings         []float64 `json:"ratings"`
	Device          *Device   `json:"-"`
}

// Credential is a login token issued by the identity collaborator and
// checked by the HTTP auth middleware.
type Credential struct {
	Token   string
	UserID  types.ID
	Expires time.Time
}

// DelivererProfile is the deliverer-safe projection shared with receivers.
// It never exposes identifiers, credentials, or the card reference.
type DelivererProfile struct {
	Name        string    `json:"name"`
	Mobile      string    `json:"mobile"`
	Avatar      string    `json:"avatar,omitempty"`
	Description string    `json:"description,omitempty"`
	Ratings     []float64 `json:"ratings"`
}

// ReceiverProfile is the receiver-safe projection shared with the winning
// deliverer.
type ReceiverProfile struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

func NewDelivererProfile(u *User) DelivererProfile {
	return DelivererProfile{
		Name:        u.Name,
		Mobile:      u.Mobile,
		Avatar:      u.Avatar,
		Description: u.Description,
		Ratings:     u.Ratings,
	}
}

func NewReceiverProfile(u *User) ReceiverProfile {
	return ReceiverProfile{Name: u.Name, Mobile: u.Mobile}
}
