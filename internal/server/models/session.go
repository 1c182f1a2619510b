package models

import "time"

// Session binds an opaque token to a user identity with an absolute expiry.
// Sessions are not renewed on activity.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
