package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"logwal/pkg/dberrors"

	"github.com/cockroachdb/pebble"
)

const keyPrefix = "map:"

// upper bound for the key prefix: ';' follows ':'
var prefixEnd = []byte("map;")

// Pebble persists the map in a pebble database. Keys are the prefix followed
// by the big-endian key with the sign bit flipped, so byte order matches
// integer order.
type Pebble struct {
	db *pebble.DB

	// serializes mutations so the entry count stays exact
	mu     sync.Mutex
	count  int
	closed atomic.Bool
}

// OpenPebble opens (or creates) a pebble database in dir. A nil opts uses
// pebble defaults.
func OpenPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	p := &Pebble{db: db}
	if err := p.scan(keyFor(minKey), func(int64, []byte) error {
		p.count++
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("count entries: %w", err)
	}

	return p, nil
}

const minKey = -1 << 63

func keyFor(k int64) []byte {
	b := make([]byte, len(keyPrefix)+8)
	copy(b, keyPrefix)
	binary.BigEndian.PutUint64(b[len(keyPrefix):], uint64(k)^(1<<63))
	return b
}

func parseKey(b []byte) (int64, error) {
	if len(b) != len(keyPrefix)+8 || string(b[:len(keyPrefix)]) != keyPrefix {
		return 0, fmt.Errorf("unexpected key %q", b)
	}
	return int64(binary.BigEndian.Uint64(b[len(keyPrefix):]) ^ (1 << 63)), nil
}

func (p *Pebble) Insert(key int64, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return dberrors.ErrClosed
	}

	existed, err := p.has(keyFor(key))
	if err != nil {
		return err
	}
	if err := p.db.Set(keyFor(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	if !existed {
		p.count++
	}
	return nil
}

func (p *Pebble) Get(key int64) ([]byte, bool, error) {
	if p.closed.Load() {
		return nil, false, dberrors.ErrClosed
	}
	val, closer, err := p.db.Get(keyFor(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	return clone(val), true, nil
}

func (p *Pebble) Remove(key int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return dberrors.ErrClosed
	}

	existed, err := p.has(keyFor(key))
	if err != nil || !existed {
		return err
	}
	if err := p.db.Delete(keyFor(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	p.count--
	return nil
}

func (p *Pebble) Contains(key int64) (bool, error) {
	if p.closed.Load() {
		return false, dberrors.ErrClosed
	}
	return p.has(keyFor(key))
}

func (p *Pebble) Len() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return 0, dberrors.ErrClosed
	}
	return p.count, nil
}

func (p *Pebble) Scan(from int64, fn func(key int64, value []byte) error) error {
	if p.closed.Load() {
		return dberrors.ErrClosed
	}
	return p.scan(keyFor(from), fn)
}

func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.db.Close()
}

func (p *Pebble) has(k []byte) (bool, error) {
	_, closer, err := p.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pebble get: %w", err)
	}
	_ = closer.Close()
	return true, nil
}

func (p *Pebble) scan(lower []byte, fn func(key int64, value []byte) error) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixEnd,
	})
	if err != nil {
		return err
	}

	for iter.First(); iter.Valid(); iter.Next() {
		k, err := parseKey(iter.Key())
		if err != nil {
			_ = iter.Close()
			return err
		}
		if err := fn(k, clone(iter.Value())); err != nil {
			_ = iter.Close()
			return err
		}
	}

	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return err
	}
	return iter.Close()
}
