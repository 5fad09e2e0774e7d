package handlers

import (
	"context"

	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/streadway/amqp"
)

var log = logging.Log.WithField("package", "handlers")

// The message categories, taken from the first segment of the routing key.
const (
	CategoryPush = "push"
	CategoryChat = "chat"
)

// MessageHandler describes the interface used to handle AMQP messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, updateType string, delivery amqp.Delivery) error
}

// Receiver describes the notification gateway operations that broker messages are forwarded to.
type Receiver interface {
	HandleIncomingPush(ctx context.Context, payload *model.PushPayload)
	HandleRealtimeEvent(ctx context.Context, conversationID string, message model.RealtimeMessage)
}

// InitMessageHandlers returns a map from category name to message handler.
func InitMessageHandlers(receiver Receiver) map[string]MessageHandler {
	return map[string]MessageHandler{
		CategoryPush: NewPush(receiver),
		CategoryChat: NewChat(receiver),
	}
}
