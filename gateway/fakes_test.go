package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/cyverse-de/notification-gateway/alert"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/cyverse-de/notification-gateway/push"
	"github.com/pkg/errors"
)

var errBackendDown = errors.New("backend unreachable")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeBackend keeps notifications in memory and can be told to fail every call.
type fakeBackend struct {
	mu               sync.Mutex
	notifications    []model.Notification
	failing          bool
	tokenFailures    int
	listCalls        int
	countCalls       int
	registeredTokens []string
	tokenAttempts    int
	listStarted      chan struct{}
	listRelease      chan struct{}
}

func newFakeBackend(notifications ...model.Notification) *fakeBackend {
	return &fakeBackend{notifications: notifications}
}

func (b *fakeBackend) setFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}

func (b *fakeBackend) add(n model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append([]model.Notification{n}, b.notifications...)
}

func (b *fakeBackend) calls() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls, b.countCalls
}

func (b *fakeBackend) tokens() ([]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.registeredTokens...), b.tokenAttempts
}

func (b *fakeBackend) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if b.listStarted != nil {
		b.listStarted <- struct{}{}
		<-b.listRelease
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.failing {
		return nil, errBackendDown
	}
	result := append([]model.Notification{}, b.notifications...)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (b *fakeBackend) UnreadCount(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.countCalls++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.failing {
		return 0, errBackendDown
	}
	return model.CountUnread(b.notifications), nil
}

func (b *fakeBackend) MarkRead(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errBackendDown
	}
	b.notifications = model.MarkRead(b.notifications, id)
	return nil
}

func (b *fakeBackend) MarkAllRead(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errBackendDown
	}
	b.notifications = model.MarkAllRead(b.notifications)
	return nil
}

func (b *fakeBackend) ClearAll(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errBackendDown
	}
	b.notifications = nil
	return nil
}

func (b *fakeBackend) RegisterPushToken(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenAttempts++
	if b.failing {
		return errBackendDown
	}
	if b.tokenFailures > 0 {
		b.tokenFailures--
		return errBackendDown
	}
	b.registeredTokens = append(b.registeredTokens, token)
	return nil
}

// fakeCache is an in-memory notification cache.
type fakeCache struct {
	mu            sync.Mutex
	notifications []model.Notification
	saved         bool
	failing       bool
}

func (c *fakeCache) LoadNotifications(context.Context) ([]model.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, errors.New("cache unreadable")
	}
	if !c.saved {
		return []model.Notification{}, nil
	}
	return append([]model.Notification{}, c.notifications...), nil
}

func (c *fakeCache) SaveNotifications(_ context.Context, notifications []model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("cache unwritable")
	}
	c.notifications = append([]model.Notification{}, notifications...)
	c.saved = true
	return nil
}

func (c *fakeCache) find(id string) (model.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// fakePresenter records the alerts it was asked to present.
type fakePresenter struct {
	mu              sync.Mutex
	deny            bool
	permissionCalls int
	channels        []alert.Channel
	alerts          []model.Alert
}

func (p *fakePresenter) RequestPermission(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissionCalls++
	return !p.deny, nil
}

func (p *fakePresenter) CreateChannel(_ context.Context, channel alert.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

func (p *fakePresenter) Present(_ context.Context, a model.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return nil
}

func (p *fakePresenter) presented() []model.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Alert{}, p.alerts...)
}

// fakeMessaging is a push-capable messaging implementation whose token is set by the test.
type fakeMessaging struct {
	mu          sync.Mutex
	token       string
	registerErr error
	onRefresh   func(string)
}

func (m *fakeMessaging) Available() bool {
	return true
}

func (m *fakeMessaging) Register(context.Context) error {
	return m.registerErr
}

func (m *fakeMessaging) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", push.ErrTokenNotReady
	}
	return m.token, nil
}

func (m *fakeMessaging) OnTokenRefresh(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}

func (m *fakeMessaging) issue(token string) {
	m.mu.Lock()
	m.token = token
	fn := m.onRefresh
	m.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}
