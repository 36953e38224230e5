package course

import (
	"context"
	"time"
)

const (
	NotificationUnread = "unread"
)

// Notification is an internal record of an event on a course; it is stored, never delivered.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"` // the user behind the event
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
