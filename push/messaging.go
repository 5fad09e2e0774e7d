// Package push provides the push messaging capability. The gateway is given either a push-capable
// implementation or Disabled, chosen once at startup.
package push

import (
	"context"

	"github.com/cyverse-de/notification-gateway/db"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/pkg/errors"
)

var log = logging.Log.WithField("package", "push")

// ErrTokenNotReady is returned when the device token hasn't been issued yet. It means "try again later"
// rather than failure; the token will be reported through the refresh callback once it exists.
var ErrTokenNotReady = errors.New("the push token is not available yet")

// Messaging describes the platform push messaging subsystem.
type Messaging interface {
	// Available reports whether push delivery is supported at all.
	Available() bool

	// Register registers the device with the messaging subsystem.
	Register(ctx context.Context) error

	// Token returns the device push token.
	Token(ctx context.Context) (string, error)

	// OnTokenRefresh sets the function called whenever a new token is issued.
	OnTokenRefresh(fn func(token string))
}

// Select returns the push-capable implementation if push is enabled, or Disabled otherwise.
func Select(enabled bool, store db.KeyValueStore) Messaging {
	if !enabled || store == nil {
		log.Info("push messaging is unavailable; falling back to backend polling only")
		return Disabled{}
	}
	return NewQueueMessaging(store)
}

// Disabled is the messaging implementation used when push delivery isn't available.
type Disabled struct{}

// Available always returns false.
func (Disabled) Available() bool {
	return false
}

// Register does nothing.
func (Disabled) Register(context.Context) error {
	log.Debug("push messaging is disabled; skipping registration")
	return nil
}

// Token always returns an empty token.
func (Disabled) Token(context.Context) (string, error) {
	log.Debug("push messaging is disabled; no token is available")
	return "", nil
}

// OnTokenRefresh does nothing because tokens are never issued.
func (Disabled) OnTokenRefresh(func(string)) {}
