package httpserver

import "errors"

var (
	ErrStart          = errors.New("failed to start ops server")
	ErrShutdown       = errors.New("failed to shutdown ops server gracefully")
	ErrAlreadyRunning = errors.New("ops server already running")
)
