// Package client talks to a memorylane server: the HTTP API for account and
// media calls, the admin gRPC API for operator calls.
package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoSession    = errors.New("not logged in")
)
