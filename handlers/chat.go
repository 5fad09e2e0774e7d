package handlers

import (
	"context"
	"encoding/json"

	"github.com/cyverse-de/notification-gateway/model"
	"github.com/streadway/amqp"
)

// ChatEvent represents a deserialized real-time chat event.
type ChatEvent struct {
	ConversationID string                 `json:"conversationId"`
	Message        *model.RealtimeMessage `json:"message"`
}

// Chat is a message handler for real-time chat events.
type Chat struct {
	receiver Receiver
}

// NewChat returns a new chat event handler.
func NewChat(receiver Receiver) *Chat {
	return &Chat{receiver: receiver}
}

// HandleMessage handles a single AMQP delivery.
func (h *Chat) HandleMessage(ctx context.Context, updateType string, delivery amqp.Delivery) error {

	// Parse the message body.
	var event ChatEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		return NewUnrecoverableError("unable to parse chat event: %s", err.Error())
	}

	// Validate the event.
	if event.ConversationID == "" {
		return NewUnrecoverableError("chat event has no conversation ID")
	}
	if event.Message == nil {
		return NewUnrecoverableError("chat event for conversation %s has no message", event.ConversationID)
	}

	if err := ctx.Err(); err != nil {
		return NewRecoverableError("not forwarding chat event for conversation %s: %s", event.ConversationID, err)
	}

	log.Debugf("received a %s event for conversation %s", updateType, event.ConversationID)
	h.receiver.HandleRealtimeEvent(ctx, event.ConversationID, *event.Message)

	return nil
}
