package push

import (
	"context"
	"sync"

	"github.com/cyverse-de/notification-gateway/db"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// QueueMessaging delivers pushes through a broker queue dedicated to this device. The device token is the
// name of that queue; the backend routes pushes for the device using the token it was given.
type QueueMessaging struct {
	store db.KeyValueStore

	mu        sync.Mutex
	token     string
	onRefresh func(string)
	newID     func() string
}

// NewQueueMessaging returns a push-capable messaging implementation that keeps its token in the given store.
func NewQueueMessaging(store db.KeyValueStore) *QueueMessaging {
	return &QueueMessaging{
		store: store,
		newID: func() string { return uuid.New().String() },
	}
}

// Available always returns true.
func (m *QueueMessaging) Available() bool {
	return true
}

// Register loads the device token from the store, issuing a new one if this device has never registered.
// The refresh callback is invoked when a new token is issued.
func (m *QueueMessaging) Register(ctx context.Context) error {
	wrapMsg := "unable to register for push messaging"

	m.mu.Lock()
	if m.token != "" {
		m.mu.Unlock()
		return nil
	}

	value, found, err := m.store.Get(ctx, db.PushTokenKey)
	if err != nil {
		m.mu.Unlock()
		return errors.Wrap(err, wrapMsg)
	}
	if found && len(value) > 0 {
		m.token = string(value)
		m.mu.Unlock()
		log.Debugf("loaded existing push token %s", m.token)
		return nil
	}

	token := "device-" + m.newID()
	if err = m.store.Put(ctx, db.PushTokenKey, []byte(token)); err != nil {
		m.mu.Unlock()
		return errors.Wrap(err, wrapMsg)
	}
	m.token = token
	onRefresh := m.onRefresh
	m.mu.Unlock()

	log.Infof("issued new push token %s", token)
	if onRefresh != nil {
		onRefresh(token)
	}
	return nil
}

// Token returns the device token, or ErrTokenNotReady if Register hasn't completed yet.
func (m *QueueMessaging) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrTokenNotReady
	}
	return m.token, nil
}

// OnTokenRefresh sets the function called when a new token is issued.
func (m *QueueMessaging) OnTokenRefresh(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}
