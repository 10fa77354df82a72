package logmap

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"logwal/pkg/dberrors"
	"logwal/pkg/discovery"
)

// membership is the part of discovery.ZKMembership the zk transport uses.
type membership interface {
	Resolve(ctx context.Context) (string, error)
	Watch(ctx context.Context, fn func(urls []string))
	Close() error
}

// ZKRemote is an HTTP remote whose node is looked up in ZooKeeper. It keeps
// watching the membership and moves to another live node when its current
// one deregisters.
type ZKRemote struct {
	members membership
	opts    dialOptions
	cur     atomic.Pointer[HTTPRemote]
	stop    context.CancelFunc
	closed  atomic.Bool
}

func dialZK(ctx context.Context, servers []string, root string, o dialOptions) (*ZKRemote, error) {
	m, err := discovery.NewZKMembership(servers, root, o.logger)
	if err != nil {
		return nil, err
	}
	r, err := newZKRemote(ctx, m, o)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return r, nil
}

func newZKRemote(ctx context.Context, m membership, o dialOptions) (*ZKRemote, error) {
	url, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("logmap resolved node", "url", url)

	r := &ZKRemote{members: m, opts: o}
	r.cur.Store(newHTTPRemote(url, o))

	watchCtx, cancel := context.WithCancel(context.Background())
	r.stop = cancel
	m.Watch(watchCtx, r.update)
	return r, nil
}

// update keeps the current node while it is live and otherwise switches to
// the first live one. With no live nodes the current node is kept so calls
// fail at the transport instead of here.
func (r *ZKRemote) update(urls []string) {
	if r.closed.Load() {
		return
	}
	cur := r.cur.Load()
	if len(urls) == 0 {
		r.opts.logger.Warn("logmap: no live nodes, keeping current", "url", cur.baseURL)
		return
	}
	live := slices.ContainsFunc(urls, func(u string) bool {
		return strings.TrimRight(u, "/") == cur.baseURL
	})
	if live {
		return
	}

	r.cur.Store(newHTTPRemote(urls[0], r.opts))
	r.opts.logger.Info("logmap: node changed", "from", cur.baseURL, "to", urls[0])
}

// URL returns the base URL requests currently go to.
func (r *ZKRemote) URL() string {
	return r.cur.Load().baseURL
}

func (r *ZKRemote) ConcurrentSafe() bool { return true }

func (r *ZKRemote) remote() (*HTTPRemote, error) {
	if r.closed.Load() {
		return nil, dberrors.ErrClosed
	}
	return r.cur.Load(), nil
}

func (r *ZKRemote) Insert(ctx context.Context, key int64, value []byte) error {
	h, err := r.remote()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	return h.Insert(ctx, key, value)
}

func (r *ZKRemote) Get(ctx context.Context, key int64) ([]byte, bool, error) {
	h, err := r.remote()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, err)
	}
	return h.Get(ctx, key)
}

func (r *ZKRemote) Remove(ctx context.Context, key int64) error {
	h, err := r.remote()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}
	return h.Remove(ctx, key)
}

func (r *ZKRemote) ContainsKey(ctx context.Context, key int64) (bool, error) {
	h, err := r.remote()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return h.ContainsKey(ctx, key)
}

func (r *ZKRemote) Len(ctx context.Context) (int, error) {
	h, err := r.remote()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return h.Len(ctx)
}

func (r *ZKRemote) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.stop()
	err := r.members.Close()
	_ = r.cur.Load().Close()
	return err
}
