package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	serverhttp "logwal/internal/http"
	"logwal/internal/grpcserver"
	"logwal/pkg/config"
	"logwal/pkg/discovery"
	"logwal/pkg/feed"
	"logwal/pkg/metrics"
	"logwal/pkg/storage"
)

const registerTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	restorePath := flag.String("restore", "", "load a BMAP snapshot into storage before serving")
	flag.Parse()

	cfg, err := initConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *restorePath); err != nil {
		slog.Error("logmapd failed", "error", err)
		os.Exit(1)
	}
	slog.Info("logmapd stopped")
}

func run(ctx context.Context, cfg config.Config, restorePath string) error {
	engine, err := storage.Open(cfg.Storage.Engine, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			slog.Warn("failed to close storage", "error", err)
		}
	}()
	slog.Info("storage opened", "engine", cfg.Storage.Engine, "path", cfg.Storage.Path)

	if restorePath != "" {
		if err := restore(engine, restorePath); err != nil {
			return err
		}
	}

	prom := metrics.NewPrometheus()

	var pub feed.Publisher = feed.NewLogPublisher(slog.Default())
	if len(cfg.Feed.Brokers) > 0 {
		pub = feed.NewKafkaPublisher(cfg.Feed.Brokers, cfg.Feed.Topic)
		slog.Info("kafka feed enabled", "brokers", cfg.Feed.Brokers, "topic", cfg.Feed.Topic)
	}
	served := feed.NewEngine(engine, pub, cfg.Feed.QueueSize, feed.WithCollector(prom))
	// Stopped explicitly after the servers so late mutations are still published.
	served.Start(context.Background())
	defer served.Stop()

	httpServer := serverhttp.NewServer(served, strconv.Itoa(cfg.Server.HTTPPort))
	httpServer.SetMetrics(prom)
	httpServer.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	if err := httpServer.Start(); err != nil {
		return err
	}
	defer func() {
		if err := httpServer.Stop(); err != nil {
			slog.Warn("error stopping HTTP server", "error", err)
		}
	}()

	if cfg.Server.GRPCPort > 0 {
		grpcServer := grpcserver.NewServer(served, strconv.Itoa(cfg.Server.GRPCPort))
		grpcServer.SetMetrics(prom)
		if err := grpcServer.Start(); err != nil {
			return err
		}
		defer grpcServer.Stop()
	}

	if len(cfg.Discovery.ZKServers) > 0 {
		membership, err := discovery.NewZKMembership(cfg.Discovery.ZKServers, cfg.Discovery.Root, slog.Default())
		if err != nil {
			return fmt.Errorf("connect to ZooKeeper: %w", err)
		}
		defer membership.Close()

		regCtx, cancel := context.WithTimeout(ctx, registerTimeout)
		err = membership.RegisterSelf(regCtx, cfg.Discovery.Advertise, "http://"+cfg.Discovery.Advertise)
		cancel()
		if err != nil {
			return fmt.Errorf("register in ZooKeeper: %w", err)
		}
	}

	slog.Info("logmapd is running", "http_port", cfg.Server.HTTPPort, "grpc_port", cfg.Server.GRPCPort)
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func restore(engine storage.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	entries, err := storage.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if err := storage.Restore(engine, entries); err != nil {
		return fmt.Errorf("restore snapshot %s: %w", path, err)
	}
	slog.Info("snapshot restored", "path", path, "entries", len(entries))
	return nil
}
