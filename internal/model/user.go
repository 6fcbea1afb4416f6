// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash is the bcrypt digest and is never serialised. IsAdmin is
// stored but no route consults it.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	AvatarURL    string    `json:"avatarUrl"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the claim set carried by an access token: who the caller is,
// nothing more. Handlers that need profile fields re-fetch the User.
type Identity struct {
	UserID string
	Name   string
}
