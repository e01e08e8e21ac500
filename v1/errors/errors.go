// Package errors holds transport level sentinels shared by the lease store
// backends. Backends translate driver specific failures into these values so
// callers can match them with errors.Is regardless of the store in use.
package errors

import "errors"

var (
	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")
)
