// Package logmap is the client side of a remote ordered int64 -> bytes map.
// Transports are chosen by address scheme in Dial.
package logmap

import "context"

// Map is a handle to a remote ordered map. Insert overwrites an existing
// value. Get reports an absent key as (nil, false, nil).
type Map interface {
	Insert(ctx context.Context, key int64, value []byte) error
	Get(ctx context.Context, key int64) ([]byte, bool, error)
	Remove(ctx context.Context, key int64) error
	ContainsKey(ctx context.Context, key int64) (bool, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// ConcurrentSafe is implemented by maps whose methods may be called from
// several goroutines at once.
type ConcurrentSafe interface {
	ConcurrentSafe() bool
}

// IsConcurrentSafe reports whether m declares itself safe for concurrent use.
func IsConcurrentSafe(m Map) bool {
	cs, ok := m.(ConcurrentSafe)
	return ok && cs.ConcurrentSafe()
}
