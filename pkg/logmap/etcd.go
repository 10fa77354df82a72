package logmap

import (
	"context"
	"fmt"
	"sync/atomic"

	"logwal/pkg/dberrors"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "map:"

// EtcdRemote stores the map in an etcd v3 keyspace under prefix. Keys are
// "<prefix>/map:<16 hex digits>" with the sign bit flipped, so a range read
// returns entries in integer order.
type EtcdRemote struct {
	cli    *clientv3.Client
	prefix string
	closed atomic.Bool
}

func NewEtcdRemote(endpoints []string, prefix string, opts ...DialOption) (*EtcdRemote, error) {
	return newEtcdRemote(endpoints, prefix, newDialOptions(opts))
}

func newEtcdRemote(endpoints []string, prefix string, o dialOptions) (*EtcdRemote, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: o.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd client: %w", err)
	}
	return &EtcdRemote{cli: cli, prefix: prefix + "/" + keyPrefix}, nil
}

func (e *EtcdRemote) ConcurrentSafe() bool { return true }

func etcdKey(prefix string, key int64) string {
	return fmt.Sprintf("%s%016x", prefix, uint64(key)^(1<<63))
}

func (e *EtcdRemote) Insert(ctx context.Context, key int64, value []byte) error {
	if e.closed.Load() {
		return fmt.Errorf("%w: %w", ErrInsert, dberrors.ErrClosed)
	}
	if _, err := e.cli.Put(ctx, etcdKey(e.prefix, key), string(value)); err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	return nil
}

func (e *EtcdRemote) Get(ctx context.Context, key int64) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, dberrors.ErrClosed)
	}
	resp, err := e.cli.Get(ctx, etcdKey(e.prefix, key))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	value := make([]byte, len(resp.Kvs[0].Value))
	copy(value, resp.Kvs[0].Value)
	return value, true, nil
}

func (e *EtcdRemote) Remove(ctx context.Context, key int64) error {
	if e.closed.Load() {
		return fmt.Errorf("%w: %w", ErrRemove, dberrors.ErrClosed)
	}
	if _, err := e.cli.Delete(ctx, etcdKey(e.prefix, key)); err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}
	return nil
}

func (e *EtcdRemote) ContainsKey(ctx context.Context, key int64) (bool, error) {
	if e.closed.Load() {
		return false, fmt.Errorf("%w: %w", ErrQuery, dberrors.ErrClosed)
	}
	resp, err := e.cli.Get(ctx, etcdKey(e.prefix, key), clientv3.WithCountOnly())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return resp.Count > 0, nil
}

func (e *EtcdRemote) Len(ctx context.Context) (int, error) {
	if e.closed.Load() {
		return 0, fmt.Errorf("%w: %w", ErrQuery, dberrors.ErrClosed)
	}
	resp, err := e.cli.Get(ctx, e.prefix, clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return int(resp.Count), nil
}

func (e *EtcdRemote) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.cli.Close()
}
