package base

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a remote value that does not decode as a SaveRecord.
var ErrMalformedRecord = errors.New("malformed save record")

// ErrNotConnected is returned by backends used before Connect succeeded.
var ErrNotConnected = errors.New("provider not connected")

// ErrClosed is returned when a store is closed before its backend connected.
var ErrClosed = errors.New("provider closed")

// ProviderError reports a failed remote operation.
type ProviderError struct {
	Op       string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
