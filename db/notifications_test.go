package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cyverse-de/notification-gateway/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err, "unable to open the bolt store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestBoltStore(t)

	_, found, err := store.Get(ctx, "missing")
	assert.NoError(err)
	assert.False(found)

	assert.NoError(store.Put(ctx, "key", []byte("first")))
	assert.NoError(store.Put(ctx, "key", []byte("second")))
	value, found, err := store.Get(ctx, "key")
	assert.NoError(err)
	assert.True(found)
	assert.Equal("second", string(value))

	assert.NoError(store.Delete(ctx, "key"))
	_, found, err = store.Get(ctx, "key")
	assert.NoError(err)
	assert.False(found)
}

func TestNotificationCacheEmpty(t *testing.T) {
	assert := assert.New(t)
	cache := NewNotificationCache(newTestBoltStore(t))

	notifications, err := cache.LoadNotifications(context.Background())
	assert.NoError(err)
	assert.NotNil(notifications)
	assert.Empty(notifications)
}

func TestNotificationCacheOverwrite(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cache := NewNotificationCache(newTestBoltStore(t))

	first := []model.Notification{{ID: "1", Title: "one", Type: model.TypeOrder}}
	second := []model.Notification{
		{ID: "3", Title: "three", Type: model.TypeProposal, Timestamp: "2024-05-02T10:00:00Z"},
		{ID: "2", Title: "two", Type: model.TypeSystem, IsRead: true},
	}
	assert.NoError(cache.SaveNotifications(ctx, first))
	assert.NoError(cache.SaveNotifications(ctx, second))

	loaded, err := cache.LoadNotifications(ctx)
	assert.NoError(err)
	assert.Equal(second, loaded)
}

func TestNotificationCacheCorrupt(t *testing.T) {
	ctx := context.Background()
	store := newTestBoltStore(t)
	require.NoError(t, store.Put(ctx, NotificationsKey, []byte("{not json")))

	_, err := NewNotificationCache(store).LoadNotifications(ctx)
	assert.Error(t, err)
}

func TestKVTokenSource(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestBoltStore(t)
	source := NewKVTokenSource(store)

	_, err := source.Token(ctx)
	assert.Equal(ErrNoAuthToken, errors.Cause(err))

	require.NoError(t, store.Put(ctx, AuthTokenKey, []byte(`"abc123"`)))
	token, err := source.Token(ctx)
	assert.NoError(err)
	assert.Equal("abc123", token)
}

func TestOpenStoreUnsupportedDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), "mysql", "")
	assert.Error(t, err)
}
