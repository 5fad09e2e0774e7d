package model

import (
	"fmt"
	"strings"
)

// PushNotification is the display portion of a push payload.
type PushNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// PushData is the data portion of a push payload.
type PushData struct {
	Type           NotificationType `json:"type,omitempty"`
	ConversationID string           `json:"conversationId,omitempty"`
	MessageID      string           `json:"messageId,omitempty"`
	SenderID       string           `json:"senderId,omitempty"`
	Title          string           `json:"title,omitempty"`
	Body           string           `json:"body,omitempty"`
}

// PushPayload is a single message delivered by the push messaging subsystem.
type PushPayload struct {
	Notification *PushNotification `json:"notification,omitempty"`
	Data         *PushData         `json:"data,omitempty"`
}

// Category returns the notification type carried by the payload, or an empty type if there isn't one.
func (p *PushPayload) Category() NotificationType {
	if p == nil || p.Data == nil {
		return ""
	}
	return p.Data.Type
}

// IsChatMessage returns true if the payload announces a new chat message.
func (p *PushPayload) IsChatMessage() bool {
	return p.Category() == TypeChatMessage
}

// Title returns the display title, preferring the notification block over the data block.
func (p *PushPayload) Title() string {
	if p == nil {
		return ""
	}
	if p.Notification != nil && p.Notification.Title != "" {
		return p.Notification.Title
	}
	if p.Data != nil {
		return p.Data.Title
	}
	return ""
}

// Body returns the display body, preferring the notification block over the data block.
func (p *PushPayload) Body() string {
	if p == nil {
		return ""
	}
	if p.Notification != nil && p.Notification.Body != "" {
		return p.Notification.Body
	}
	if p.Data != nil {
		return p.Data.Body
	}
	return ""
}

// Reminder builds the chat reminder described by a chat message payload.
func (p *PushPayload) Reminder() ChatReminder {
	r := ChatReminder{Title: p.Title(), Body: p.Body()}
	if p != nil && p.Data != nil {
		r.ConversationID = p.Data.ConversationID
		r.MessageID = p.Data.MessageID
		r.SenderID = p.Data.SenderID
	}
	return r
}

// RealtimeMessage is a chat message delivered over the real-time channel.
type RealtimeMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// Reminder builds the chat reminder for a real-time message in the given conversation.
func (m RealtimeMessage) Reminder(conversationID string) ChatReminder {
	title := m.SenderName
	if title == "" {
		title = "New message"
	}
	return ChatReminder{
		ConversationID: conversationID,
		MessageID:      m.ID,
		SenderID:       m.SenderID,
		Title:          title,
		Body:           m.Content,
	}
}

// ChatReminder is a transient alert for a new chat message. Reminders are never persisted.
type ChatReminder struct {
	ConversationID string
	MessageID      string
	SenderID       string
	Title          string
	Body           string
}

// DedupKey returns the key used to suppress duplicate reminders for the same message. Reminders without
// a message ID are keyed by their conversation, sender and body.
func (r ChatReminder) DedupKey() string {
	if r.MessageID != "" {
		return r.MessageID
	}
	return fmt.Sprintf("%s|%s|%s", r.ConversationID, r.SenderID, strings.TrimSpace(r.Body))
}

// Toast is an in-app notification shown while the application is in the foreground.
type Toast struct {
	Title string
	Body  string
	Type  NotificationType
	Route string
}

// Alert is a request to display an OS-level notification banner.
type Alert struct {
	ChannelID string
	Title     string
	Body      string
	Type      NotificationType
}
