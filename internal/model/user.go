// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account.
// The password hash is stored in PHC string format and never serialized.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}

// AvatarPlaceholder is assigned to new accounts until they pick an avatar.
const AvatarPlaceholder = "/assets/images/avatar-placeholder.png"
