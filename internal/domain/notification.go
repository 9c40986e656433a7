package domain

import (
	"fmt"
	"time"
)

// NotificationType is the closed set of delivery-worthy event kinds.
// New kinds require explicit handling wherever notifications are rendered,
// so arbitrary strings are rejected at the boundary.
type NotificationType string

const (
	NotificationAssignment NotificationType = "assignment"
	NotificationComment    NotificationType = "comment"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAssignment, NotificationComment:
		return true
	}
	return false
}

// ParseNotificationType converts a stored string back into a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown notification type %q", s)
	}
	return t, nil
}

// Notification is one delivery-worthy event recorded for one recipient.
// Immutable once created except for the read flag.
type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}
