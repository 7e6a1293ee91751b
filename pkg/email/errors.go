package email

import "errors"

var (
	ErrSendFailed    = errors.New("email: failed to send")
	ErrInvalidConfig = errors.New("email: invalid config")
	ErrInvalidParams = errors.New("email: invalid params")
)
