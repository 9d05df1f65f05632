package core

import (
	"context"
	"errors"
	"fmt"
)

// PersistenceError reports that a local store failed to durably read or write.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("persistence: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GatewayError reports a failed image analysis call: network failure,
// timeout or a response that could not be understood.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Timeout reports whether the call was abandoned because of its deadline.
func (e *GatewayError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsGateway reports whether err is (or wraps) a GatewayError.
func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
