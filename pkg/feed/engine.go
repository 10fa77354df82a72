package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"logwal/pkg/listener"
	"logwal/pkg/metrics"
	"logwal/pkg/storage"
)

const (
	DefaultQueueSize      = 1024
	defaultPublishTimeout = 5 * time.Second
)

// Engine wraps a storage.Engine and queues an Event for every successful
// Insert and Remove. Events are handed to the Publisher on a single
// goroutine, in ordinal order. A full queue drops the event; the mutation
// itself always stands.
type Engine struct {
	storage.Engine

	mu      sync.Mutex
	ordinal uint64
	queue   chan Event

	pub      Publisher
	listener *listener.Listener[Event]
	logger   *slog.Logger
	metrics  metrics.Collector
	dropped  atomic.Uint64
	stopOnce sync.Once
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithCollector(c metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

func NewEngine(inner storage.Engine, pub Publisher, queueSize int, opts ...Option) *Engine {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	e := &Engine{
		Engine:  inner,
		queue:   make(chan Event, queueSize),
		pub:     pub,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.listener = listener.New(e.queue, e.publish, e.closePublisher).WithLogger(e.logger)
	return e
}

// Start begins publishing queued events.
func (e *Engine) Start(ctx context.Context) {
	e.listener.Start(ctx)
}

// Stop publishes what is still queued and closes the publisher.
func (e *Engine) Stop() {
	e.stopOnce.Do(e.listener.Stop)
}

func (e *Engine) Insert(key int64, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.Engine.Insert(key, value); err != nil {
		return err
	}
	e.emit(Event{Key: key, Value: append([]byte{}, value...)})
	return nil
}

func (e *Engine) Remove(key int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.Engine.Remove(key); err != nil {
		return err
	}
	e.emit(Event{Key: key, Deleted: true})
	return nil
}

// Dropped reports how many events did not fit in the queue.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// emit must be called with mu held.
func (e *Engine) emit(ev Event) {
	e.ordinal++
	ev.Ordinal = e.ordinal
	ev.Timestamp = time.Now().UTC()

	select {
	case e.queue <- ev:
	default:
		e.dropped.Add(1)
		e.metrics.IncCounter("feed_events_total", map[string]string{"result": "dropped"}, 1)
		e.logger.Warn("feed queue full, event dropped", "ordinal", ev.Ordinal, "key", ev.Key)
	}
}

func (e *Engine) publish(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	if err := e.pub.Publish(ctx, ev); err != nil {
		e.metrics.IncCounter("feed_events_total", map[string]string{"result": "error"}, 1)
		return err
	}
	e.metrics.IncCounter("feed_events_total", map[string]string{"result": "published"}, 1)
	return nil
}

func (e *Engine) closePublisher() {
	if err := e.pub.Close(); err != nil {
		e.logger.Warn("failed to close feed publisher", "error", err)
	}
}

var _ listener.Job = (*Engine)(nil)
