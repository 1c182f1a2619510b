// Package models contains the persisted row types shared by the server's
// repositories and services.
package models

import "time"

// User is the persisted account row. PasswordHash never leaves the server;
// handlers expose users only through the Public projection.
type User struct {
	ID                 string
	Email              string
	Phone              *string
	Name               *string
	PasswordHash       string
	EmailVerified      bool
	VerificationCode   *string
	VerificationExpiry *time.Time
	CreatedAt          time.Time
}

// PublicUser is the minimal projection returned to clients and embedded in
// messages as the sender.
type PublicUser struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Public returns the client-facing projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}
