package handlers

import (
	"context"
	"encoding/json"

	"github.com/cyverse-de/notification-gateway/model"
	"github.com/streadway/amqp"
)

// Push is a message handler for push deliveries addressed to this device.
type Push struct {
	receiver Receiver
}

// NewPush returns a new push message handler.
func NewPush(receiver Receiver) *Push {
	return &Push{receiver: receiver}
}

// HandleMessage handles a single AMQP delivery.
func (h *Push) HandleMessage(ctx context.Context, updateType string, delivery amqp.Delivery) error {
	if len(delivery.Body) == 0 {
		return NewUnrecoverableError("empty push payload")
	}

	// Parse the message body.
	var payload model.PushPayload
	if err := json.Unmarshal(delivery.Body, &payload); err != nil {
		return NewUnrecoverableError("unable to parse push payload: %s", err.Error())
	}

	// The gateway is shutting down. Leave the push on the queue for the next run.
	if err := ctx.Err(); err != nil {
		return NewRecoverableError("not forwarding push of type %q: %s", payload.Category(), err)
	}

	log.Debugf("received a %s push of type %q", updateType, payload.Category())
	h.receiver.HandleIncomingPush(ctx, &payload)

	return nil
}
