package main

import (
	"context"
	"log/slog"
	"time"

	"logwal/pkg/config"
	"logwal/pkg/logmap"
	"logwal/pkg/wal"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	addr       string
	resume     bool
	timeout    time.Duration
	retries    int
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "walctl",
		Short:         "Write and read records of a write-ahead log stored in a logmap server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "config.yaml", "path to YAML config")
	flags.StringVar(&g.addr, "addr", "", "map address (http://, grpc://, etcd://, zk:// or host:port)")
	flags.BoolVar(&g.resume, "resume", true, "continue after the records already in the map")
	flags.DurationVar(&g.timeout, "timeout", 0, "connect timeout")
	flags.IntVar(&g.retries, "retries", 0, "HTTP retries for requests that got no response")

	root.AddCommand(
		newWriteCmd(g),
		newReadCmd(g),
		newReplayCmd(g),
		newBenchCmd(g),
	)
	return root
}

// load fills every flag the user did not set from the config file.
func (g *globalFlags) load(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}

	g.logger = slog.New(cfg.Logger.Handler(cmd.ErrOrStderr()))

	flags := cmd.Flags()
	if !flags.Changed("addr") {
		g.addr = cfg.WAL.Address
	}
	if !flags.Changed("resume") {
		g.resume = cfg.WAL.Resume
	}
	if !flags.Changed("timeout") {
		g.timeout = cfg.WAL.Timeout
	}
	if !flags.Changed("retries") {
		g.retries = cfg.WAL.Retries
	}
	return nil
}

func (g *globalFlags) open(ctx context.Context, resume bool) (*wal.Sequencer, error) {
	dialOpts := []logmap.DialOption{logmap.WithRetry(g.retries, 100*time.Millisecond)}
	if g.timeout > 0 {
		dialOpts = append(dialOpts, logmap.WithTimeout(g.timeout))
	}

	opts := []wal.Option{
		wal.WithLogger(g.logger),
		wal.WithDialOptions(dialOpts...),
	}
	if resume {
		opts = append(opts, wal.WithResume())
	}
	return wal.Open(ctx, g.addr, opts...)
}
