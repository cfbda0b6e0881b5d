package types

import "time"

// User represents an account in the system.
// It contains identity, credit balance, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address, stored lowercase and unique.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Credits is the remaining balance of premium interview credits.
	// New accounts start with 5 free credits.
	Credits int `json:"credits" db:"credits"`

	// IsVerified reports whether the email address has been confirmed.
	IsVerified bool `json:"isVerified" db:"is_verified"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
