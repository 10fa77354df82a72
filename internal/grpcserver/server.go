// Package grpcserver exposes a storage engine as a remote ordered map over
// gRPC, speaking the wire.ServiceDesc service.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"logwal/pkg/dberrors"
	"logwal/pkg/metrics"
	"logwal/pkg/storage"
	"logwal/pkg/wire"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultGRPCPort = "9090"

type Server struct {
	engine   storage.Engine
	metrics  metrics.Collector
	grpc     *grpc.Server
	addr     string
	listener net.Listener
}

func NewServer(engine storage.Engine, port string) *Server {
	if port == "" {
		port = defaultGRPCPort
	}
	s := &Server{
		engine:  engine,
		metrics: metrics.Nop{},
		addr:    ":" + port,
	}
	s.grpc = grpc.NewServer(
		wire.ServerCodec(),
		grpc.ChainUnaryInterceptor(s.observe),
	)
	wire.RegisterMapServer(s.grpc, &mapService{engine: engine})
	return s
}

func (s *Server) SetMetrics(m metrics.Collector) {
	if m == nil {
		m = metrics.Nop{}
	}
	s.metrics = m
}

// Start listens on the configured port and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start gRPC server: %w", err)
	}
	s.listener = ln
	go s.Serve(ln)
	slog.Info("gRPC server started", "addr", ln.Addr().String())
	return nil
}

// Serve blocks serving ln until Stop.
func (s *Server) Serve(ln net.Listener) {
	if err := s.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		slog.Error("gRPC server error", "error", err)
	}
}

// Stop drains in-flight calls.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	labels := map[string]string{"method": info.FullMethod, "code": code.String()}
	s.metrics.IncCounter("grpc_requests_total", labels, 1)
	s.metrics.ObserveHistogram("grpc_request_seconds", map[string]string{"method": info.FullMethod}, time.Since(start).Seconds())

	if err != nil {
		slog.Debug("grpc request failed", "method", info.FullMethod, "code", code, "error", err)
	}
	return resp, err
}

type mapService struct {
	engine storage.Engine
}

func toStatus(err error) error {
	if errors.Is(err, dberrors.ErrClosed) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func (m *mapService) Insert(_ context.Context, req *wire.InsertRequest) (*wire.Empty, error) {
	if err := m.engine.Insert(req.Key, req.Value); err != nil {
		return nil, toStatus(err)
	}
	return &wire.Empty{}, nil
}

func (m *mapService) Get(_ context.Context, req *wire.KeyRequest) (*wire.GetResponse, error) {
	value, found, err := m.engine.Get(req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.GetResponse{Value: value, Found: found}, nil
}

func (m *mapService) Remove(_ context.Context, req *wire.KeyRequest) (*wire.Empty, error) {
	if err := m.engine.Remove(req.Key); err != nil {
		return nil, toStatus(err)
	}
	return &wire.Empty{}, nil
}

func (m *mapService) Contains(_ context.Context, req *wire.KeyRequest) (*wire.ContainsResponse, error) {
	found, err := m.engine.Contains(req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.ContainsResponse{Found: found}, nil
}

func (m *mapService) Len(context.Context, *wire.LenRequest) (*wire.LenResponse, error) {
	n, err := m.engine.Len()
	if err != nil {
		return nil, toStatus(err)
	}
	return &wire.LenResponse{Len: int64(n)}, nil
}
