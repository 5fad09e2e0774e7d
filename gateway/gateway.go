// Package gateway reconciles notifications that arrive from the backend, from push deliveries and from the
// real-time channel into a single read/unread state, and keeps duplicate chat reminders from reaching the user.
//
// A Gateway is created once when the application starts and shared by everything that needs it. None of its
// public operations return errors: backend failures fall back to the local cache for reads and are applied
// locally for writes.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/cyverse-de/notification-gateway/alert"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/cyverse-de/notification-gateway/push"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var log = logging.Log.WithField("package", "gateway")

// Backend describes the remote API that owns notification records and their read state.
type Backend interface {
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	ClearAll(ctx context.Context) error
	RegisterPushToken(ctx context.Context, token string) error
}

// Cache describes the local offline copy of the notification list.
type Cache interface {
	LoadNotifications(ctx context.Context) ([]model.Notification, error)
	SaveNotifications(ctx context.Context, notifications []model.Notification) error
}

// Settings contains the tunable parameters of a Gateway.
type Settings struct {
	// NotificationLimit is the number of notifications requested from the backend.
	NotificationLimit int

	// DedupWindow is how long a chat reminder suppresses later reminders for the same message.
	DedupWindow time.Duration

	// StaleTime is how long a successful backend read is reused before the backend is asked again.
	StaleTime time.Duration

	// TokenRetryAttempts is the number of times the push token is sent to the backend before giving up.
	TokenRetryAttempts int

	// TokenRetryBackoff is multiplied by the attempt number to get the wait before the next attempt.
	TokenRetryBackoff time.Duration
}

// DefaultSettings returns the default gateway settings.
func DefaultSettings() Settings {
	return Settings{
		NotificationLimit:  50,
		DedupWindow:        10 * time.Second,
		StaleTime:          30 * time.Second,
		TokenRetryAttempts: 3,
		TokenRetryBackoff:  time.Second,
	}
}

// Gateway is the single authority within the process for notification delivery and read state.
type Gateway struct {
	settings  Settings
	backend   Backend
	cache     Cache
	messaging push.Messaging
	presenter alert.Presenter
	dedup     *Deduper
	now       func() time.Time

	mu                 sync.Mutex
	initialized        bool
	alertsAllowed      bool
	activeConversation string
	registeredToken    string

	// Memoized backend reads. The generation is bumped on every invalidation so that a fetch which started
	// before the invalidation can't store its result.
	memoMu     sync.Mutex
	generation uint64
	list       *listMemo
	unread     *countMemo
	fetches    singleflight.Group

	// Serializes read-modify-write cycles on the local cache.
	cacheMu sync.Mutex

	reminders     broadcaster[model.ChatReminder]
	toasts        broadcaster[model.Toast]
	invalidations broadcaster[struct{}]

	// Tracks background token registrations.
	background sync.WaitGroup
}

type listMemo struct {
	notifications []model.Notification
	fetchedAt     time.Time
}

type countMemo struct {
	count     int
	fetchedAt time.Time
}

// New creates a gateway. Zero or negative settings are replaced by their defaults. Initialize must be called
// before push tokens are registered or alerts are shown.
func New(settings Settings, backend Backend, cache Cache, messaging push.Messaging, presenter alert.Presenter) *Gateway {
	if messaging == nil {
		messaging = push.Disabled{}
	}
	defaults := DefaultSettings()
	if settings.NotificationLimit <= 0 {
		settings.NotificationLimit = defaults.NotificationLimit
	}
	if settings.DedupWindow <= 0 {
		settings.DedupWindow = defaults.DedupWindow
	}
	if settings.StaleTime <= 0 {
		settings.StaleTime = defaults.StaleTime
	}
	if settings.TokenRetryAttempts <= 0 {
		settings.TokenRetryAttempts = defaults.TokenRetryAttempts
	}
	if settings.TokenRetryBackoff <= 0 {
		settings.TokenRetryBackoff = defaults.TokenRetryBackoff
	}
	return &Gateway{
		settings:  settings,
		backend:   backend,
		cache:     cache,
		messaging: messaging,
		presenter: presenter,
		dedup:     NewDeduper(settings.DedupWindow),
		now:       time.Now,
	}
}

// Initialize registers with the push messaging subsystem, requests permission to show alerts, creates the
// alert channel and registers the device push token with the backend. Each step is independent of the others;
// a failure is logged and the remaining steps still run. Calling Initialize again has no effect.
func (g *Gateway) Initialize(ctx context.Context) {
	g.mu.Lock()
	if g.initialized {
		g.mu.Unlock()
		log.Debug("the notification gateway is already initialized")
		return
	}
	g.initialized = true
	g.mu.Unlock()

	log.Info("initializing the notification gateway")

	// Register with the messaging subsystem. Tokens issued later are registered through the refresh callback.
	if g.messaging.Available() {
		g.messaging.OnTokenRefresh(func(token string) {
			log.Info("received a push token refresh")
			g.registerTokenAsync(token)
		})
		if err := g.messaging.Register(ctx); err != nil {
			log.WithError(err).Warn("unable to register with the push messaging subsystem")
		}
	} else {
		log.Info("push messaging is unavailable; notifications will only be fetched from the backend")
	}

	// Request permission to display alerts.
	if g.presenter != nil {
		granted, err := g.presenter.RequestPermission(ctx)
		if err != nil {
			log.WithError(err).Warn("unable to request permission to display alerts")
		} else if !granted {
			log.Info("permission to display alerts was denied")
		}
		g.mu.Lock()
		g.alertsAllowed = err == nil && granted
		g.mu.Unlock()

		// Create the alert channel.
		if err := g.presenter.CreateChannel(ctx, alert.DefaultChannel); err != nil {
			log.WithError(err).Warn("unable to create the alert channel")
		}
	}

	// Register the push token if one is already available.
	token, err := g.messaging.Token(ctx)
	switch {
	case errors.Cause(err) == push.ErrTokenNotReady:
		log.Info("the push token is not available yet; it will be registered when it's issued")
	case err != nil:
		log.WithError(err).Warn("unable to obtain the push token")
	case token == "":
		log.Debug("no push token is available")
	default:
		g.registerTokenAsync(token)
	}
}

// registerTokenAsync sends the push token to the backend without blocking the caller.
func (g *Gateway) registerTokenAsync(token string) {
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		g.registerToken(context.Background(), token)
	}()
}

// registerToken sends the push token to the backend, retrying with a linearly increasing backoff. A token that
// has already been registered, or whose registration is in progress, is skipped.
func (g *Gateway) registerToken(ctx context.Context, token string) bool {
	g.mu.Lock()
	if g.registeredToken == token {
		g.mu.Unlock()
		return true
	}
	g.registeredToken = token
	g.mu.Unlock()

	attempts := g.settings.TokenRetryAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		err := g.backend.RegisterPushToken(ctx, token)
		if err == nil {
			log.Info("registered the push token with the backend")
			return true
		}
		backendFailed("register_push_token")
		log.WithError(err).Warnf("push token registration attempt %d of %d failed", attempt, attempts)

		if attempt < attempts && !sleep(ctx, time.Duration(attempt)*g.settings.TokenRetryBackoff) {
			break
		}
	}

	log.Errorf("giving up on push token registration after %d attempts", attempts)

	// Allow a later refresh to try the same token again.
	g.mu.Lock()
	if g.registeredToken == token {
		g.registeredToken = ""
	}
	g.mu.Unlock()

	return false
}

// SetActiveConversation records the conversation currently open in the UI. Pass an empty string when no
// conversation is open.
func (g *Gateway) SetActiveConversation(conversationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeConversation = conversationID
}

// ActiveConversation returns the conversation currently open in the UI.
func (g *Gateway) ActiveConversation() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeConversation
}

// OnChatReminder subscribes to chat reminders. The returned function unsubscribes.
func (g *Gateway) OnChatReminder(fn func(model.ChatReminder)) func() {
	return g.reminders.subscribe(fn)
}

// OnNotificationToast subscribes to in-app toasts for new notifications. The returned function unsubscribes.
func (g *Gateway) OnNotificationToast(fn func(model.Toast)) func() {
	return g.toasts.subscribe(fn)
}

// OnInvalidate subscribes to invalidations of the notification list and unread count. Subscribers typically
// refetch. The returned function unsubscribes.
func (g *Gateway) OnInvalidate(fn func()) func() {
	return g.invalidations.subscribe(func(struct{}) { fn() })
}

// sleep waits for the given duration, returning false if the context is canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
