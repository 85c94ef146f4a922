// README: FCM push notifications for order lifecycle events.
package notify

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"epsilon/internal/modules/user"
	"epsilon/internal/types"
)

// Sender is the slice of the FCM client the notifier uses.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes lifecycle events as data messages to user devices.
// Pushes are best effort: a failed send is logged and never fails the
// operation that triggered it.
type FCMNotifier struct {
	client Sender
	log    *zap.Logger
}

func NewFCMNotifier(client Sender, log *zap.Logger) *FCMNotifier {
	return &FCMNotifier{client: client, log: log}
}

func (n *FCMNotifier) NewOrder(ctx context.Context, orderID types.ID, deliverers []user.User) {
	n.pushAll(ctx, uniqueDevices(deliverers), map[string]string{
		"type":    "NewOrder",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderReceivedBid(ctx context.Context, orderID, bidID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderReceivedBid",
		"orderId": orderID,
		"bidId":   bidID,
	})
}

func (n *FCMNotifier) OrderLost(ctx context.Context, losers []user.User) {
	n.pushAll(ctx, uniqueDevices(losers), map[string]string{
		"type": "OrderLost",
	})
}

func (n *FCMNotifier) OrderWon(ctx context.Context, orderID, bidID types.ID, deliverer *user.User) {
	n.pushUser(ctx, deliverer, map[string]string{
		"type":    "OrderWon",
		"orderId": orderID,
		"bidId":   bidID,
	})
}

func (n *FCMNotifier) OrderCancelled(ctx context.Context, orderID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderCancelled",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderCancelledAutomatically(ctx context.Context, orderID types.ID, deliverer *user.User) {
	n.pushUser(ctx, deliverer, map[string]string{
		"type":    "OrderCancelledAutomatically",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderStarted(ctx context.Context, orderID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderStarted",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderPickedUp(ctx context.Context, orderID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderPickedUp",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderDelivered(ctx context.Context, orderID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderDelivered",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderDeliveredReminder(ctx context.Context, orderID types.ID, receiver *user.User) {
	n.pushUser(ctx, receiver, map[string]string{
		"type":    "OrderDeliveredReminder",
		"orderId": orderID,
	})
}

func (n *FCMNotifier) OrderReceived(ctx context.Context, orderID, bidID types.ID, deliverer *user.User) {
	n.pushUser(ctx, deliverer, map[string]string{
		"type":    "OrderReceived",
		"orderId": orderID,
		"bidId":   bidID,
	})
}

func (n *FCMNotifier) pushUser(ctx context.Context, u *user.User, data map[string]string) {
	if u == nil || u.Device == nil {
		return
	}
	n.pushAll(ctx, []user.Device{*u.Device}, data)
}

func (n *FCMNotifier) pushAll(ctx context.Context, devices []user.Device, data map[string]string) {
	for _, device := range devices {
		msg := &messaging.Message{
			Token: device.Token,
			Data:  data,
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{ContentAvailable: true},
				},
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		}
		if _, err := n.client.Send(ctx, msg); err != nil {
			n.log.Warn("push failed",
				zap.String("type", data["type"]),
				zap.String("token", device.Token),
				zap.Error(err))
		}
	}
}

// uniqueDevices collects device entries from users, dropping users without a
// device and duplicate tokens. A shared device is only pushed once even when
// several recipients registered it.
func uniqueDevices(users []user.User) []user.Device {
	seen := make(map[string]bool, len(users))
	var devices []user.Device
	for _, u := range users {
		if u.Device == nil {
			continue
		}
		key := u.Device.Token + "/" + u.Device.Type
		if seen[key] {
			continue
		}
		seen[key] = true
		devices = append(devices, *u.Device)
	}
	return devices
}
