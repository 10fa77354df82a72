package logmap

import (
	"context"
	"fmt"
	"sync/atomic"

	"logwal/pkg/dberrors"
	"logwal/pkg/wire"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCRemote talks to the logmap.Map gRPC service.
type GRPCRemote struct {
	conn   *grpc.ClientConn
	closed atomic.Bool
}

// NewGRPCRemote creates a client for target without connecting; the first
// call establishes the connection.
func NewGRPCRemote(target string, opts ...DialOption) (*GRPCRemote, error) {
	return newGRPCRemote(target, newDialOptions(opts))
}

func newGRPCRemote(target string, o dialOptions) (*GRPCRemote, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		wire.ClientCodec(),
	}
	dialOpts = append(dialOpts, o.grpcOpts...)

	conn, err := grpc.NewClient("passthrough:///"+target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	return &GRPCRemote{conn: conn}, nil
}

func (g *GRPCRemote) ConcurrentSafe() bool { return true }

func (g *GRPCRemote) invoke(ctx context.Context, method string, req, resp any) error {
	if g.closed.Load() {
		return dberrors.ErrClosed
	}
	return g.conn.Invoke(ctx, wire.FullMethod(method), req, resp)
}

func (g *GRPCRemote) Insert(ctx context.Context, key int64, value []byte) error {
	if err := g.invoke(ctx, "Insert", &wire.InsertRequest{Key: key, Value: value}, &wire.Empty{}); err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	return nil
}

func (g *GRPCRemote) Get(ctx context.Context, key int64) ([]byte, bool, error) {
	var resp wire.GetResponse
	if err := g.invoke(ctx, "Get", &wire.KeyRequest{Key: key}, &resp); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, err)
	}
	if !resp.Found {
		return nil, false, nil
	}
	if resp.Value == nil {
		resp.Value = []byte{}
	}
	return resp.Value, true, nil
}

func (g *GRPCRemote) Remove(ctx context.Context, key int64) error {
	if err := g.invoke(ctx, "Remove", &wire.KeyRequest{Key: key}, &wire.Empty{}); err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}
	return nil
}

func (g *GRPCRemote) ContainsKey(ctx context.Context, key int64) (bool, error) {
	var resp wire.ContainsResponse
	if err := g.invoke(ctx, "Contains", &wire.KeyRequest{Key: key}, &resp); err != nil {
		return false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return resp.Found, nil
}

func (g *GRPCRemote) Len(ctx context.Context) (int, error) {
	var resp wire.LenResponse
	if err := g.invoke(ctx, "Len", &wire.LenRequest{}, &resp); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return int(resp.Len), nil
}

func (g *GRPCRemote) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	return g.conn.Close()
}
