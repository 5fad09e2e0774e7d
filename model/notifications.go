package model

// NotificationType identifies the kind of event a notification describes.
type NotificationType string

// The notification types known to the backend.
const (
	TypeOrder       NotificationType = "order"
	TypeNewOrder    NotificationType = "new_order"
	TypeProposal    NotificationType = "proposal"
	TypeMessage     NotificationType = "message"
	TypeSystem      NotificationType = "system"
	TypeChatMessage NotificationType = "chat_message"
)

// Notification represents a single notification record owned by the backend.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	IsRead    bool             `json:"isRead"`
	Type      NotificationType `json:"type"`
}

// Appearance describes how a notification type is rendered.
type Appearance struct {
	Icon  string
	Color string
}

var appearances = map[NotificationType]Appearance{
	TypeOrder:       {Icon: "briefcase", Color: "#3B82F6"},
	TypeNewOrder:    {Icon: "briefcase", Color: "#3B82F6"},
	TypeProposal:    {Icon: "document-text", Color: "#10B981"},
	TypeMessage:     {Icon: "chatbubble", Color: "#8B5CF6"},
	TypeChatMessage: {Icon: "chatbubble", Color: "#8B5CF6"},
	TypeSystem:      {Icon: "information-circle", Color: "#F59E0B"},
}

var genericAppearance = Appearance{Icon: "bell", Color: "#6B7280"}

// Appearance returns the icon and color for the notification type. Unrecognized types get a generic
// appearance.
func (t NotificationType) Appearance() Appearance {
	if a, ok := appearances[t]; ok {
		return a
	}
	return genericAppearance
}

// Route returns the name of the screen a notification of this type opens.
func (t NotificationType) Route() string {
	switch t {
	case TypeOrder, TypeNewOrder:
		return "orders"
	case TypeProposal:
		return "proposals"
	case TypeMessage, TypeChatMessage:
		return "messages"
	default:
		return "notifications"
	}
}

// CountUnread counts the notifications that haven't been marked as read.
func CountUnread(notifications []Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// MarkRead returns a copy of the list with the notification that has the given ID marked as read.
func MarkRead(notifications []Notification, id string) []Notification {
	result := make([]Notification, len(notifications))
	for i, n := range notifications {
		if n.ID == id {
			n.IsRead = true
		}
		result[i] = n
	}
	return result
}

// MarkAllRead returns a copy of the list with every notification marked as read.
func MarkAllRead(notifications []Notification) []Notification {
	result := make([]Notification, len(notifications))
	for i, n := range notifications {
		n.IsRead = true
		result[i] = n
	}
	return result
}
