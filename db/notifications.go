package db

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cyverse-de/notification-gateway/model"
	"github.com/pkg/errors"
)

// The keys used in the local key-value store.
const (
	NotificationsKey = "notifications"
	AuthTokenKey     = "auth_token"
	PushTokenKey     = "push_token"
)

// ErrNoAuthToken is returned when no authentication token has been stored.
var ErrNoAuthToken = errors.New("no authentication token is available")

// NotificationCache stores the last known list of notifications as a JSON array under a single key.
type NotificationCache struct {
	store KeyValueStore
}

// NewNotificationCache returns a notification cache that uses the given key-value store.
func NewNotificationCache(store KeyValueStore) *NotificationCache {
	return &NotificationCache{store: store}
}

// LoadNotifications returns the cached notification list. An empty list is returned if nothing has been cached.
func (c *NotificationCache) LoadNotifications(ctx context.Context) ([]model.Notification, error) {
	wrapMsg := "unable to load the cached notifications"

	value, found, err := c.store.Get(ctx, NotificationsKey)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	if !found {
		return []model.Notification{}, nil
	}

	notifications := make([]model.Notification, 0)
	if err = json.Unmarshal(value, &notifications); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return notifications, nil
}

// SaveNotifications replaces the cached notification list.
func (c *NotificationCache) SaveNotifications(ctx context.Context, notifications []model.Notification) error {
	wrapMsg := "unable to save the cached notifications"

	if notifications == nil {
		notifications = []model.Notification{}
	}
	value, err := json.Marshal(notifications)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return errors.Wrap(c.store.Put(ctx, NotificationsKey, value), wrapMsg)
}

// KVTokenSource reads the authentication token that the authentication collaborator keeps in the local
// key-value store. The token is never written here.
type KVTokenSource struct {
	store KeyValueStore
}

// NewKVTokenSource returns a token source that reads from the given key-value store.
func NewKVTokenSource(store KeyValueStore) *KVTokenSource {
	return &KVTokenSource{store: store}
}

// Token returns the stored authentication token.
func (s *KVTokenSource) Token(ctx context.Context) (string, error) {
	value, found, err := s.store.Get(ctx, AuthTokenKey)
	if err != nil {
		return "", errors.Wrap(err, "unable to read the authentication token")
	}

	// Some clients store the token as a JSON string.
	token := strings.Trim(strings.TrimSpace(string(value)), `"`)
	if !found || token == "" {
		return "", ErrNoAuthToken
	}

	return token, nil
}
