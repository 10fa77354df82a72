// Package wal is a write-ahead log kept in a remote ordered map. Each record
// is stored under the index it was assigned at append time.
package wal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"logwal/pkg/codec"
	"logwal/pkg/logmap"
	"logwal/pkg/metrics"
)

// Sequencer assigns indices to records and stores them in a logmap.Map.
// It is safe for concurrent use. Writes are serialized; reads share the
// lock only when the map reports itself concurrency safe.
type Sequencer struct {
	mu       sync.RWMutex
	m        logmap.Map
	next     uint64
	detached bool

	sharedReads bool
	logger      *slog.Logger
	metrics     metrics.Collector
}

// Open dials addr and attaches a Sequencer to it. On failure no Sequencer is
// returned and the connection, if any, is closed.
func Open(ctx context.Context, addr string, opts ...Option) (*Sequencer, error) {
	o := newOptions(opts)

	dialOpts := append([]logmap.DialOption{logmap.WithLogger(o.logger)}, o.dialOpts...)
	m, err := logmap.Dial(ctx, addr, dialOpts...)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	s, err := attach(ctx, m, o)
	if err != nil {
		_ = m.Close()
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	o.logger.Info("wal opened", "addr", addr, "next_index", s.next, "shared_reads", s.sharedReads)
	return s, nil
}

// New attaches a Sequencer to an already connected map. On success the
// Sequencer owns m and closes it in Close.
func New(ctx context.Context, m logmap.Map, opts ...Option) (*Sequencer, error) {
	return attach(ctx, m, newOptions(opts))
}

func attach(ctx context.Context, m logmap.Map, o options) (*Sequencer, error) {
	s := &Sequencer{
		m:           m,
		next:        o.start,
		sharedReads: logmap.IsConcurrentSafe(m),
		logger:      o.logger,
		metrics:     o.metrics,
	}

	if o.resume {
		n, err := m.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResume, err)
		}
		s.next = uint64(n)
	}

	s.metrics.SetGauge("wal_next_index", nil, float64(s.next))
	return s, nil
}

// Write appends a record and returns its index. A failed insert does not
// consume the index: the next Write retries the same one.
func (s *Sequencer) Write(ctx context.Context, tag uint64, blob []byte) (uint64, error) {
	value := codec.Encode(tag, blob)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return 0, ErrDetached
	}

	idx := s.next
	if idx > math.MaxInt64 {
		return 0, &WriteFailedError{Index: idx, Cause: ErrIndexExhausted}
	}

	start := time.Now()
	err := s.m.Insert(ctx, int64(idx), value)
	s.metrics.ObserveHistogram("wal_op_seconds", map[string]string{"op": "write"}, time.Since(start).Seconds())
	if err != nil {
		s.metrics.IncCounter("wal_writes_total", map[string]string{"result": "error"}, 1)
		s.logger.Warn("wal write failed", "index", idx, "tag", tag, "error", err)
		return 0, &WriteFailedError{Index: idx, Cause: err}
	}

	s.next++
	s.metrics.IncCounter("wal_writes_total", map[string]string{"result": "ok"}, 1)
	s.metrics.SetGauge("wal_next_index", nil, float64(s.next))
	return idx, nil
}

// Read returns the record stored at index. A missing index is reported as
// (Record{}, false, nil).
func (s *Sequencer) Read(ctx context.Context, index uint64) (codec.Record, bool, error) {
	if s.sharedReads {
		s.mu.RLock()
		defer s.mu.RUnlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	if s.detached {
		return codec.Record{}, false, ErrDetached
	}

	if index > math.MaxInt64 {
		s.metrics.IncCounter("wal_reads_total", map[string]string{"result": "miss"}, 1)
		return codec.Record{}, false, nil
	}

	start := time.Now()
	value, found, err := s.m.Get(ctx, int64(index))
	s.metrics.ObserveHistogram("wal_op_seconds", map[string]string{"op": "read"}, time.Since(start).Seconds())
	if err != nil {
		s.metrics.IncCounter("wal_reads_total", map[string]string{"result": "error"}, 1)
		return codec.Record{}, false, &ReadFailedError{Index: index, Cause: err}
	}
	if !found {
		s.metrics.IncCounter("wal_reads_total", map[string]string{"result": "miss"}, 1)
		return codec.Record{}, false, nil
	}

	rec, err := codec.DecodeRecord(value)
	if err != nil {
		s.metrics.IncCounter("wal_reads_total", map[string]string{"result": "malformed"}, 1)
		s.logger.Warn("wal record malformed", "index", index, "error", err)
		return codec.Record{}, false, fmt.Errorf("wal: record %d: %w", index, err)
	}

	s.metrics.IncCounter("wal_reads_total", map[string]string{"result": "hit"}, 1)
	return rec, true, nil
}

// Replay calls fn for from, from+1, ... in order. It stops at the first
// missing index or at NextIndex, whichever comes first.
func (s *Sequencer) Replay(ctx context.Context, from uint64, fn func(index uint64, rec codec.Record) error) error {
	end := s.NextIndex()
	for i := from; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, ok, err := s.Read(ctx, i)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := fn(i, rec); err != nil {
			return fmt.Errorf("wal replay callback failed at %d: %w", i, err)
		}
	}
	return nil
}

// NextIndex returns the index the next successful Write will be assigned.
func (s *Sequencer) NextIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}

// Close detaches the Sequencer and closes the map. Later calls, Close
// included, fail with ErrDetached.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return ErrDetached
	}
	s.detached = true

	if err := s.m.Close(); err != nil {
		return fmt.Errorf("wal: close map: %w", err)
	}
	s.logger.Debug("wal closed", "next_index", s.next)
	return nil
}
