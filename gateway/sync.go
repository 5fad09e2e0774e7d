package gateway

import (
	"context"
	"time"

	"github.com/cyverse-de/notification-gateway/model"
)

// fetchTimeout bounds a backend read that is shared by several callers.
const fetchTimeout = 30 * time.Second

// GetNotifications returns the notification list in the order the backend returned it. The list comes from
// the backend when it's reachable and from the local cache otherwise; a single call never mixes the two.
func (g *Gateway) GetNotifications(ctx context.Context) []model.Notification {
	if notifications, ok := g.memoizedList(); ok {
		return notifications
	}

	result, _, _ := g.fetches.Do("notifications", func() (interface{}, error) {
		fetchCtx, cancel := sharedFetchContext(ctx)
		defer cancel()
		return g.fetchNotifications(fetchCtx), nil
	})

	return cloneNotifications(result.([]model.Notification))
}

// fetchNotifications asks the backend for the notification list, refreshing the cache on success and falling
// back to it on failure.
func (g *Gateway) fetchNotifications(ctx context.Context) []model.Notification {
	generation := g.currentGeneration()

	notifications, err := g.backend.ListNotifications(ctx, g.settings.NotificationLimit)
	if err != nil {
		backendFailed("list_notifications")
		log.WithError(err).Warn("unable to fetch notifications; using the cached list")
		return g.loadCache(ctx)
	}

	g.cacheMu.Lock()
	if err := g.cache.SaveNotifications(ctx, notifications); err != nil {
		log.WithError(err).Warn("unable to update the notification cache")
	}
	g.cacheMu.Unlock()

	g.memoMu.Lock()
	if g.generation == generation {
		g.list = &listMemo{notifications: cloneNotifications(notifications), fetchedAt: g.now()}
	}
	g.memoMu.Unlock()

	return notifications
}

// GetUnreadCount returns the backend's unread notification count, or the number of unread notifications in the
// local cache if the backend can't be reached.
func (g *Gateway) GetUnreadCount(ctx context.Context) int {
	if count, ok := g.memoizedCount(); ok {
		return count
	}

	result, _, _ := g.fetches.Do("unread-count", func() (interface{}, error) {
		fetchCtx, cancel := sharedFetchContext(ctx)
		defer cancel()
		return g.fetchUnreadCount(fetchCtx), nil
	})

	return result.(int)
}

func (g *Gateway) fetchUnreadCount(ctx context.Context) int {
	generation := g.currentGeneration()

	count, err := g.backend.UnreadCount(ctx)
	if err != nil {
		backendFailed("unread_count")
		log.WithError(err).Warn("unable to fetch the unread count; counting cached notifications")
		return model.CountUnread(g.loadCache(ctx))
	}

	g.memoMu.Lock()
	if g.generation == generation {
		g.unread = &countMemo{count: count, fetchedAt: g.now()}
	}
	g.memoMu.Unlock()

	return count
}

// MarkAsRead marks a single notification as read. The local cache is updated even if the backend call fails.
func (g *Gateway) MarkAsRead(ctx context.Context, id string) {
	if err := g.backend.MarkRead(ctx, id); err != nil {
		backendFailed("mark_read")
		log.WithError(err).Warnf("unable to mark notification %s as read on the backend", id)
	}

	g.updateCache(ctx, func(notifications []model.Notification) []model.Notification {
		return model.MarkRead(notifications, id)
	})
	g.invalidate()
}

// MarkAllAsRead marks every notification as read. The local cache is updated even if the backend call fails.
func (g *Gateway) MarkAllAsRead(ctx context.Context) {
	if err := g.backend.MarkAllRead(ctx); err != nil {
		backendFailed("mark_all_read")
		log.WithError(err).Warn("unable to mark all notifications as read on the backend")
	}

	g.updateCache(ctx, model.MarkAllRead)
	g.invalidate()
}

// ClearAll removes every notification. The local cache is emptied even if the backend call fails.
func (g *Gateway) ClearAll(ctx context.Context) {
	if err := g.backend.ClearAll(ctx); err != nil {
		backendFailed("clear_all")
		log.WithError(err).Warn("unable to clear notifications on the backend")
	}

	g.updateCache(ctx, func([]model.Notification) []model.Notification {
		return []model.Notification{}
	})
	g.invalidate()
}

// sharedFetchContext detaches a shared read from the caller that started it, so that callers who joined the read
// aren't affected if that caller gives up.
func sharedFetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
}

// loadCache returns the cached notifications, or an empty list if the cache can't be read.
func (g *Gateway) loadCache(ctx context.Context) []model.Notification {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	notifications, err := g.cache.LoadNotifications(ctx)
	if err != nil {
		log.WithError(err).Warn("unable to read the notification cache")
		return []model.Notification{}
	}
	return notifications
}

// updateCache applies a change to the cached notification list.
func (g *Gateway) updateCache(ctx context.Context, update func([]model.Notification) []model.Notification) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	notifications, err := g.cache.LoadNotifications(ctx)
	if err != nil {
		log.WithError(err).Warn("unable to read the notification cache; starting from an empty list")
		notifications = []model.Notification{}
	}

	if err := g.cache.SaveNotifications(ctx, update(notifications)); err != nil {
		log.WithError(err).Warn("unable to update the notification cache")
	}
}

// invalidate discards the memoized backend reads and notifies the invalidation subscribers.
func (g *Gateway) invalidate() {
	g.memoMu.Lock()
	g.generation++
	g.list = nil
	g.unread = nil
	g.memoMu.Unlock()

	g.invalidations.emit(struct{}{})
}

func (g *Gateway) currentGeneration() uint64 {
	g.memoMu.Lock()
	defer g.memoMu.Unlock()
	return g.generation
}

func (g *Gateway) memoizedList() ([]model.Notification, bool) {
	g.memoMu.Lock()
	defer g.memoMu.Unlock()
	if g.list == nil || g.now().Sub(g.list.fetchedAt) >= g.settings.StaleTime {
		return nil, false
	}
	return cloneNotifications(g.list.notifications), true
}

func (g *Gateway) memoizedCount() (int, bool) {
	g.memoMu.Lock()
	defer g.memoMu.Unlock()
	if g.unread == nil || g.now().Sub(g.unread.fetchedAt) >= g.settings.StaleTime {
		return 0, false
	}
	return g.unread.count, true
}

func cloneNotifications(notifications []model.Notification) []model.Notification {
	result := make([]model.Notification, len(notifications))
	copy(result, notifications)
	return result
}
