package model

import "time"

// Session is the server-side state behind a session cookie.
// The token itself is opaque; all session data lives in Redis.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
