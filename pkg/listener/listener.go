package listener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	errListenerStopped = errors.New("listener stopped")
)

type Job interface {
	Start(ctx context.Context)
	Stop()
}

// Listener runs handler for every value received on in, one at a time, on
// its own goroutine. Handler errors are logged and do not stop the loop.
// The loop ends when in is closed or Stop is called; on Stop the values
// already buffered in in are still handled.
type Listener[T any] struct {
	handler     func(input T) error
	stopHandler func()

	in     <-chan T
	wg     sync.WaitGroup
	cancel func()
	logger *slog.Logger
}

func New[T any](
	in <-chan T,
	handler func(T) error,
	stopHandler ...func(),
) *Listener[T] {
	if len(stopHandler) == 0 {
		stopHandler = []func(){func() {}}
	}

	return &Listener[T]{
		in:          in,
		handler:     handler,
		cancel:      func() {},
		stopHandler: stopHandler[0],
		logger:      slog.Default(),
	}
}

// WithLogger replaces the logger used for handler errors.
func (l *Listener[T]) WithLogger(logger *slog.Logger) *Listener[T] {
	l.logger = logger
	return l
}

func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		for {
			if err := l.run(ctx); errors.Is(err, errListenerStopped) {
				return
			}
		}
	}()
}

func (l *Listener[T]) run(ctx context.Context) error {
	select {
	case inp, ok := <-l.in:
		if !ok {
			return errListenerStopped
		}
		l.handle(inp)
	case <-ctx.Done():
		l.drain()
		return errListenerStopped
	}

	return nil
}

func (l *Listener[T]) drain() {
	for {
		select {
		case inp, ok := <-l.in:
			if !ok {
				return
			}
			l.handle(inp)
		default:
			return
		}
	}
}

func (l *Listener[T]) handle(inp T) {
	if err := l.handler(inp); err != nil {
		l.logger.Warn("failed to handle input", "error", err)
	}
}

func (l *Listener[T]) Stop() {
	l.cancel()
	l.wg.Wait()
	l.stopHandler()
}
