package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"scanndine/model"

	"github.com/sirupsen/logrus"
)

const (
	EventOrderPlaced  = "order.placed"
	EventOrderStatus  = "order.status"
	EventOrderCleared = "order.cleared"
)

const StaffChannel = "staff"

func TableChannel(tableID uint) string { return fmt.Sprintf("table:%d", tableID) }
func UserChannel(userID uint) string   { return fmt.Sprintf("user:%d", userID) }

// OrderEvent is pushed whenever an order is placed or changes status.
type OrderEvent struct {
	Type  string       `json:"type"`
	Order *model.Order `json:"order"`
}

// Channels lists who hears about the order: staff, its table and, for
// customer orders, its owner.
func (e OrderEvent) Channels() []string {
	out := []string{StaffChannel, TableChannel(e.Order.TableID)}
	if e.Order.UserID != nil {
		out = append(out, UserChannel(*e.Order.UserID))
	}
	return out
}

// envelope is what travels between instances through the relay.
type envelope struct {
	Channels []string        `json:"channels"`
	Data     json.RawMessage `json:"data"`
}

// Notifier publishes order events. With a relay configured every event goes
// through redis so all instances (this one included) deliver it; otherwise
// it goes straight to the local hub.
type Notifier struct {
	hub   *Hub
	relay *RedisRelay
	log   logrus.FieldLogger
}

func NewNotifier(hub *Hub, relay *RedisRelay, log logrus.FieldLogger) *Notifier {
	return &Notifier{hub: hub, relay: relay, log: log}
}

func (n *Notifier) NotifyOrder(ctx context.Context, event OrderEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		n.log.WithError(err).Error("marshal order event")
		return
	}
	channels := event.Channels()
	if n.relay != nil {
		err := n.relay.Publish(ctx, envelope{Channels: channels, Data: data})
		if err == nil {
			return
		}
		n.log.WithError(err).Warn("relay publish failed, delivering locally")
	}
	n.hub.Broadcast(channels, data)
}
