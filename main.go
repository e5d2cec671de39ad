package main

import (
	"flag"
	"fmt"
	"os"

	"go-link-redirector/config"
	"go-link-redirector/logging"
	"go-link-redirector/server"
	"go.uber.org/zap"
)

func main() {
	disableRateLimit := flag.Bool("disable-rate-limit", false, "Disable rate limiting for performance testing")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the environment")
	flag.Parse()

	if err := run(*envFile, *disableRateLimit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile string, disableRateLimit bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if disableRateLimit {
		cfg.DisableRateLimit = true
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting link redirector...")
	if err := server.Run(logger, cfg); err != nil {
		logger.Error("Application error", zap.Error(err))
		return err
	}
	logger.Info("Link redirector stopped.")
	return nil
}
