package main

import (
	"log/slog"
	"os"

	"logwal/pkg/config"
)

// initConfig loads the YAML config. A missing file yields config.Default().
func initConfig(path string) (config.Config, error) {
	return config.Load(path)
}

// initLogger sets the global slog.Logger (JSON or text).
func initLogger(cfg *config.Config) {
	logger := slog.New(cfg.Logger.Handler(os.Stdout))
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
}
