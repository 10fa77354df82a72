package wal

import (
	"errors"
	"fmt"

	"logwal/pkg/codec"
)

var (
	// ErrDetached is returned by every operation after Close.
	ErrDetached = errors.New("wal: detached")

	// ErrIndexExhausted is the cause of a write past the largest storable index.
	ErrIndexExhausted = errors.New("wal: index space exhausted")

	// ErrResume wraps a failed length lookup while attaching with WithResume.
	// The map was reachable; its size could not be read.
	ErrResume = errors.New("wal: resume")

	// ErrMalformedRecord matches (errors.Is) a stored value that is not a record.
	ErrMalformedRecord = codec.ErrMalformedRecord
)

// ConnectError is returned by Open for every attach failure. It wraps
// logmap.ErrConnect when the map could not be reached and ErrResume when it
// answered but WithResume could not read its length.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("wal: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// WriteFailedError means the record for Index was not stored.
type WriteFailedError struct {
	Index uint64
	Cause error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("wal: write %d failed: %v", e.Index, e.Cause)
}

func (e *WriteFailedError) Unwrap() error { return e.Cause }

// ReadFailedError means the remote map could not be queried for Index.
type ReadFailedError struct {
	Index uint64
	Cause error
}

func (e *ReadFailedError) Error() string {
	return fmt.Sprintf("wal: read %d failed: %v", e.Index, e.Cause)
}

func (e *ReadFailedError) Unwrap() error { return e.Cause }
