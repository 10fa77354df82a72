// Package storage holds the ordered map engines that back a logmap server.
package storage

import (
	"errors"
	"fmt"
)

var (
	ErrBadSnapshot    = errors.New("storage: bad snapshot")
	ErrUnknownBackend = errors.New("storage: unknown backend")
)

// Engine is an ordered int64 -> bytes map. Implementations are safe for
// concurrent use.
type Engine interface {
	Insert(key int64, value []byte) error
	Get(key int64) ([]byte, bool, error)
	Remove(key int64) error
	Contains(key int64) (bool, error)
	Len() (int, error)
	// Scan calls fn for every key >= from in ascending order. A non-nil
	// error from fn stops the scan and is returned.
	Scan(from int64, fn func(key int64, value []byte) error) error
	Close() error
}

// Open builds an engine by backend name.
func Open(backend, path string) (Engine, error) {
	switch backend {
	case "", "memory":
		return NewMemory(), nil
	case "pebble":
		return OpenPebble(path, nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
