package httpserver

import "errors"

var (
	// ErrStart reports that the listener could not be started.
	ErrStart = errors.New("failed to start http server")
	// ErrShutdown reports that graceful shutdown did not complete in time.
	ErrShutdown = errors.New("failed to shut down http server gracefully")
)
