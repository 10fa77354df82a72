package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Config is the root configuration shared by logmapd and walctl.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger" validate:"required"`
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Storage   StorageConfig   `yaml:"storage" validate:"required"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Feed      FeedConfig      `yaml:"feed"`
	WAL       WALConfig       `yaml:"wal"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port" validate:"required,min=1,max=65535"`
	// GRPCPort 0 disables the gRPC listener.
	GRPCPort        int           `yaml:"grpc_port" validate:"min=0,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Engine string `yaml:"engine" validate:"required,oneof=memory pebble"`
	Path   string `yaml:"path" validate:"required_if=Engine pebble"`
}

// DiscoveryConfig registers the server in ZooKeeper when ZKServers is set.
type DiscoveryConfig struct {
	ZKServers []string `yaml:"zk_servers" validate:"omitempty,dive,hostname_port"`
	Root      string   `yaml:"root" validate:"required_with=ZKServers"`
	Advertise string   `yaml:"advertise" validate:"required_with=ZKServers"`
}

// FeedConfig publishes mutations to Kafka when Brokers is set.
type FeedConfig struct {
	Brokers   []string `yaml:"brokers" validate:"omitempty,dive,hostname_port"`
	Topic     string   `yaml:"topic" validate:"required_with=Brokers"`
	QueueSize int      `yaml:"queue_size" validate:"min=0"`
}

type WALConfig struct {
	Address string        `yaml:"address" validate:"required"`
	Resume  bool          `yaml:"resume"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
	Retries int           `yaml:"retries" validate:"min=0,max=10"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			HTTPPort:        8080,
			GRPCPort:        9090,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Engine: "memory",
			Path:   "./data",
		},
		Discovery: DiscoveryConfig{
			Root: "/logwal",
		},
		Feed: FeedConfig{
			Topic:     "logwal.map",
			QueueSize: 1024,
		},
		WAL: WALConfig{
			Address: "localhost:8080",
			Resume:  true,
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML file over Default() and validates the result. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the constraints in the validate tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c LoggerConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(c.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler builds a JSON or text slog handler writing to w.
func (c LoggerConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{AddSource: true, Level: c.SlogLevel()}
	if c.JSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
