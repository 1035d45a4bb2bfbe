package controller

import "time"

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const (
	defaultNotificationTTL = 3 * time.Second
	refreshNotificationTTL = 2 * time.Second
)

// Notification is a transient message shown to the operator.
type Notification struct {
	Level    Level
	Message  string
	Duration time.Duration
	RaisedAt time.Time
}

// ExpiresAt reports when the notification should disappear.
func (n Notification) ExpiresAt() time.Time {
	return n.RaisedAt.Add(n.Duration)
}

// Active reports whether the notification is still visible at now.
func (n Notification) Active(now time.Time) bool {
	return now.Before(n.ExpiresAt())
}
