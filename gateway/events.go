package gateway

import (
	"context"

	"github.com/cyverse-de/notification-gateway/alert"
	"github.com/cyverse-de/notification-gateway/metrics"
	"github.com/cyverse-de/notification-gateway/model"
	"github.com/sirupsen/logrus"
)

// Delivery channels, used in logs and metrics.
const (
	channelPush     = "push"
	channelRealtime = "realtime"
)

var knownCategories = map[model.NotificationType]bool{
	model.TypeOrder:       true,
	model.TypeNewOrder:    true,
	model.TypeProposal:    true,
	model.TypeMessage:     true,
	model.TypeSystem:      true,
	model.TypeChatMessage: true,
}

// categoryLabel keeps metric label values bounded.
func categoryLabel(category model.NotificationType) string {
	if knownCategories[category] {
		return string(category)
	}
	return "other"
}

func backendFailed(operation string) {
	metrics.BackendFailures.WithLabelValues(operation).Inc()
}

// HandleIncomingPush handles a single push delivery, whether it arrived while the application was in the
// foreground or launched it.
//
// Chat message pushes produce a chat reminder unless the conversation is open or a reminder for the same
// message was already emitted within the dedup window. Every other push refers to a notification that the
// backend has already stored, so the cached list and unread count are invalidated, a toast is emitted and an
// alert banner is shown.
func (g *Gateway) HandleIncomingPush(ctx context.Context, payload *model.PushPayload) {
	category := payload.Category()
	metrics.PushesReceived.WithLabelValues(categoryLabel(category)).Inc()

	if payload.IsChatMessage() {
		g.emitChatReminder(payload.Reminder(), channelPush)
		return
	}

	log.WithField("type", category).Debug("received a notification push")
	g.invalidate()

	title, body := payload.Title(), payload.Body()
	g.toasts.emit(model.Toast{
		Title: title,
		Body:  body,
		Type:  category,
		Route: category.Route(),
	})
	g.presentAlert(ctx, model.Alert{
		ChannelID: alert.DefaultChannel.ID,
		Title:     title,
		Body:      body,
		Type:      category,
	})
}

// HandleRealtimeEvent handles a chat message delivered over the real-time channel. It shares the dedup state
// with chat message pushes, so whichever channel delivers a message first produces the only reminder.
func (g *Gateway) HandleRealtimeEvent(_ context.Context, conversationID string, message model.RealtimeMessage) {
	g.emitChatReminder(message.Reminder(conversationID), channelRealtime)
}

// emitChatReminder delivers a reminder to the subscribed listeners unless it's suppressed. It returns true if
// the reminder was emitted.
func (g *Gateway) emitChatReminder(reminder model.ChatReminder, channel string) bool {
	entry := log.WithFields(logrus.Fields{
		"channel":      channel,
		"conversation": reminder.ConversationID,
		"message":      reminder.MessageID,
	})

	if reminder.ConversationID != "" && reminder.ConversationID == g.ActiveConversation() {
		entry.Debug("the conversation is open; suppressing the chat reminder")
		metrics.RemindersSuppressed.WithLabelValues("active_conversation").Inc()
		return false
	}

	if !g.dedup.Allow(reminder.DedupKey()) {
		entry.Debug("a reminder for this message was already emitted; suppressing the chat reminder")
		metrics.RemindersSuppressed.WithLabelValues("duplicate").Inc()
		return false
	}

	entry.Debug("emitting a chat reminder")
	metrics.RemindersEmitted.WithLabelValues(channel).Inc()
	g.reminders.emit(reminder)
	return true
}

// presentAlert displays an alert banner if permission was granted.
func (g *Gateway) presentAlert(ctx context.Context, a model.Alert) {
	if g.presenter == nil {
		return
	}

	g.mu.Lock()
	allowed := g.alertsAllowed
	g.mu.Unlock()
	if !allowed {
		log.Debug("alerts are not permitted; skipping the alert banner")
		return
	}

	if a.Title == "" && a.Body == "" {
		log.Debug("the push has nothing to display; skipping the alert banner")
		return
	}

	if err := g.presenter.Present(ctx, a); err != nil {
		log.WithError(err).Warn("unable to display the alert banner")
		return
	}
	metrics.AlertsPresented.Inc()
}
