package main

import (
	"log/slog"
	"os"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/cli"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	cfg, err := config.LoadWith(v)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	if err := cli.Execute(cfg, v); err != nil {
		os.Exit(1)
	}
}
