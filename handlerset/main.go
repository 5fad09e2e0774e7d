package handlerset

import (
	"context"
	"strings"

	"github.com/cyverse-de/messaging/v9"
	"github.com/cyverse-de/notification-gateway/handlers"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var log = logging.Log.WithField("package", "handlerset")

// prefetchCount is the number of unacknowledged deliveries the broker may send at once.
const prefetchCount = 10

// AMQPSettings represents the settings that we require in order to connect to the AMQP exchange.
type AMQPSettings struct {
	URI          string
	ExchangeName string
	ExchangeType string
}

// BindingKeys returns the routing keys this device listens on. Pushes are addressed to the device token;
// without a token only real-time chat events are received.
func BindingKeys(pushToken string) []string {
	keys := []string{handlers.CategoryChat + ".#"}
	if pushToken != "" {
		keys = append(keys, handlers.CategoryPush+"."+pushToken)
	}
	return keys
}

// queuePrefix names the temporary queue used when this device has no push token.
const queuePrefix = "notification-gateway-realtime-"

// HandlerSet represents a set of AMQP message handlers.
type HandlerSet struct {
	amqpClient *messaging.Client
	settings   *AMQPSettings
	handlerFor map[string]handlers.MessageHandler
}

// New creates a new handler set. The AMQP client reconnects to the broker and re-establishes its consumers
// whenever the connection is lost.
func New(amqpSettings *AMQPSettings, handlerFor map[string]handlers.MessageHandler) (*HandlerSet, error) {
	wrapMsg := "unable to create the message handler set"

	// Create the AMQP client.
	amqpClient, err := messaging.NewClient(amqpSettings.URI, true)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Build and return the handler set.
	handlerSet := HandlerSet{
		amqpClient: amqpClient,
		settings:   amqpSettings,
		handlerFor: handlerFor,
	}
	return &handlerSet, nil
}

// queueName returns the name of the queue to consume from. A device with a push token gets a durable queue named
// after the token so that pushes wait for it; otherwise a uniquely named temporary queue is used.
func queueName(pushToken string) string {
	if pushToken != "" {
		return pushToken
	}
	return queuePrefix + uuid.New().String()
}

// Listen consumes deliveries until the context is canceled. Deliveries are handled with the listener's context,
// so handlers can tell when the service is shutting down.
func (hs *HandlerSet) Listen(ctx context.Context, pushToken string) {
	go hs.amqpClient.Listen()

	consume := func(_ context.Context, delivery amqp.Delivery) {
		hs.dispatch(ctx, delivery)
	}

	exchange, exchangeType := hs.settings.ExchangeName, hs.settings.ExchangeType
	queue, bindingKeys := queueName(pushToken), BindingKeys(pushToken)
	if pushToken != "" {
		hs.amqpClient.AddConsumerMulti(exchange, exchangeType, queue, bindingKeys, consume, prefetchCount)
	} else {
		hs.amqpClient.AddDeletableConsumer(exchange, exchangeType, queue, bindingKeys[0], consume)
	}
	log.Infof("listening on queue %s with binding keys %v", queue, bindingKeys)

	<-ctx.Done()
}

// dispatch passes a delivery to the handler for its category and acknowledges it according to the outcome.
func (hs *HandlerSet) dispatch(ctx context.Context, delivery amqp.Delivery) {
	category := strings.SplitN(delivery.RoutingKey, ".", 2)[0]
	entry := log.WithFields(logrus.Fields{"routing-key": delivery.RoutingKey, "category": category})

	handler, ok := hs.handlerFor[category]
	if !ok {
		entry.Warn("no handler is registered for the message category; rejecting the message")
		if err := delivery.Reject(false); err != nil {
			entry.WithError(err).Error("unable to reject the message")
		}
		return
	}

	err := handler.HandleMessage(ctx, category, delivery)
	switch {
	case err == nil:
		err = delivery.Ack(false)
	case handlers.IsRecoverable(err):
		entry.WithError(err).Warn("recoverable error while handling the message; requeueing")
		err = delivery.Nack(false, true)
	default:
		entry.WithError(err).Error("unrecoverable error while handling the message; rejecting")
		err = delivery.Reject(false)
	}
	if err != nil {
		entry.WithError(err).Error("unable to acknowledge the message")
	}
}

// Close closes a message handler set.
func (hs *HandlerSet) Close() {
	hs.amqpClient.Close()
}
