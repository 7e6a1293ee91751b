package auth

import "errors"

// General authentication errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with that email or username already exists")
	// ErrInvalidCredentials covers unknown email, OAuth-only accounts, and
	// wrong passwords alike so responses cannot be used to probe for
	// registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPasswordSet      = errors.New("no password set for this account")
	ErrPasswordRequired   = errors.New("current password is required to change password")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
)

// Password reset errors
var (
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenUsed     = errors.New("reset token already used")
	ErrResetTokenExpired  = errors.New("reset token expired")
)

// OAuth errors
var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrInvalidCode  = errors.New("invalid oauth code")
)
