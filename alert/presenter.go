package alert

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logging.Log.WithField("package", "alert")

// ErrUnknownChannel is returned when an alert is presented on a channel that was never created.
var ErrUnknownChannel = errors.New("unknown alert channel")

// Channel describes a category of alerts, e.g. an Android notification channel.
type Channel struct {
	ID          string
	Name        string
	Description string
}

// DefaultChannel is the channel used for notification alerts.
var DefaultChannel = Channel{
	ID:          "default",
	Name:        "Notifications",
	Description: "Order, proposal and message notifications",
}

// Presenter describes the local notification scheduler that displays OS-level banners.
type Presenter interface {
	RequestPermission(ctx context.Context) (bool, error)
	CreateChannel(ctx context.Context, channel Channel) error
	Present(ctx context.Context, alert model.Alert) error
}

// channelSet tracks the channels that have been created.
type channelSet struct {
	mu       sync.Mutex
	channels map[string]Channel
}

func (s *channelSet) add(channel Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels == nil {
		s.channels = make(map[string]Channel)
	}
	s.channels[channel.ID] = channel
}

func (s *channelSet) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[id]
	return ok
}

// TerminalPresenter renders alert banners to a terminal.
type TerminalPresenter struct {
	out      io.Writer
	channels channelSet
	mu       sync.Mutex
}

// NewTerminalPresenter returns a presenter that writes banners to out.
func NewTerminalPresenter(out io.Writer) *TerminalPresenter {
	return &TerminalPresenter{out: out}
}

// RequestPermission always grants permission; a terminal has no permission prompt.
func (p *TerminalPresenter) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

// CreateChannel registers an alert channel.
func (p *TerminalPresenter) CreateChannel(_ context.Context, channel Channel) error {
	p.channels.add(channel)
	return nil
}

// Present renders a single banner.
func (p *TerminalPresenter) Present(_ context.Context, alert model.Alert) error {
	if !p.channels.has(alert.ChannelID) {
		return errors.Wrap(ErrUnknownChannel, alert.ChannelID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.out, Render(alert))
	return errors.Wrap(err, "unable to write the alert banner")
}

// Render formats an alert as a bordered banner colored by notification type.
func Render(alert model.Alert) string {
	appearance := alert.Type.Appearance()
	color := lipgloss.Color(appearance.Color)

	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(alert.Title)
	banner := lipgloss.JoinVertical(lipgloss.Left, title, alert.Body)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(banner)
}

// LogPresenter writes alert banners to the log. It's intended for headless installs.
type LogPresenter struct {
	channels channelSet
}

// NewLogPresenter returns a presenter that logs banners.
func NewLogPresenter() *LogPresenter {
	return &LogPresenter{}
}

// RequestPermission always grants permission.
func (p *LogPresenter) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

// CreateChannel registers an alert channel.
func (p *LogPresenter) CreateChannel(_ context.Context, channel Channel) error {
	p.channels.add(channel)
	return nil
}

// Present logs a single banner.
func (p *LogPresenter) Present(_ context.Context, alert model.Alert) error {
	if !p.channels.has(alert.ChannelID) {
		return errors.Wrap(ErrUnknownChannel, alert.ChannelID)
	}
	log.WithFields(logrus.Fields{
		"channel": alert.ChannelID,
		"type":    alert.Type,
	}).Infof("%s: %s", alert.Title, alert.Body)
	return nil
}
