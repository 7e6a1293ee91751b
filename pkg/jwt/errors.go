package jwt

import "errors"

var (
	ErrInvalidToken            = errors.New("jwt: invalid token")
	ErrExpiredToken            = errors.New("jwt: token is expired")
	ErrInvalidSignature        = errors.New("jwt: invalid signature")
	ErrUnexpectedSigningMethod = errors.New("jwt: unexpected signing method")
	ErrMissingSecret           = errors.New("jwt: missing signing secret")
	ErrWeakSecret              = errors.New("jwt: signing secret must be at least 32 bytes")
)
