// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash carries the `json:"-"` tag so a User can be written straight
// to a response without leaking the bcrypt hash.
//
// WHY Name *string?
// The name is optional at registration and stored as NULL when absent. The
// web client renders `null` differently from an empty string, so we keep the
// distinction instead of collapsing it to "".
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the public summary of a user attached to recipes.
type Author struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Summary returns the author view of the user.
func (u *User) Summary() Author {
	return Author{ID: u.ID, Email: u.Email, Name: u.Name}
}
