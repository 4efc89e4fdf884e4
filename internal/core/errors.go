package core

import "errors"

// Rejection reasons for connections dropped at attach time.
const (
	RejectUnauthenticated = "unauthenticated"
	RejectNoSession       = "no_session"
)

var (
	// ErrHubStopped is returned when the hub loop is no longer running.
	ErrHubStopped = errors.New("hub stopped")
	// ErrNodeFull is returned when starting a game would exceed the session limit.
	ErrNodeFull = errors.New("node is at capacity")
)
