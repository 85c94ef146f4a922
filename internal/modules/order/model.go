// README: Order aggregate and state definitions.
package order

import (
	"time"

	"epsilon/internal/types"
)

type State string

const (
	StatePending   State = "Pending"
	StateAccepted  State = "Accepted"
	StateStarted   State = "Started"
	StatePickedUp  State = "PickedUp"
	StateDelivered State = "Delivered"
	StateReceived  State = "Received"
)

const (
	PaymentTypeCash      = "Cash"
	PaymentTypeMobilePay = "MobilePay"
)

// Window is the inclusive delivery interval offered by the receiver.
type Window struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Earliest) && !t.After(w.Latest)
}

type Order struct {
	ID                    types.ID          `json:"id"`
	ReceiverID            types.ID          `json:"-"`
	State                 State             `json:"state"`
	Expensive             bool              `json:"expensive"`
	Description           string            `json:"description"`
	PaymentType           string            `json:"paymentType"`
	Cost                  float64           `json:"cost"`
	DeliveryPrice         float64           `json:"deliveryPrice"`
	DeliveryWindow        *Window           `json:"deliveryTime,omitempty"`
	PickupAddress         types.Address     `json:"pickupAddress"`
	DeliveryAddress       types.Address     `json:"deliveryAddress"`
	AcceptedBid           *types.ID         `json:"acceptedBid,omitempty"`
	ScheduledDeliveryTime *time.Time        `json:"scheduledDeliveryTime,omitempty"`
	Location              *types.Coordinate `json:"location,omitempty"`
	CreatedAt             time.Time         `json:"creationDate"`
}

// AllowedTransitions represents the order state flow as code. PickedUp and
// Delivered are reachable only through location reports; Cancel is the one
// backwards edge.
var AllowedTransitions = map[State][]State{
	StatePending:   {StateAccepted},
	StateAccepted:  {StatePending, StateStarted},
	StateStarted:   {StatePickedUp, StateReceived},
	StatePickedUp:  {StateDelivered, StateReceived},
	StateDelivered: {StateReceived},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// CanReceive reports whether the order may be marked received by the
// receiver. The geofence may never have fired, so Started and PickedUp count.
func CanReceive(from State) bool {
	return from == StateStarted || from == StatePickedUp || from == StateDelivered
}
