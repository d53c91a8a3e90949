package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ipbeacon/internal/logging"
	"ipbeacon/internal/server/api"
	"ipbeacon/internal/server/config"
	"ipbeacon/internal/server/ipfile"
	"ipbeacon/internal/version"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("ipbeacon-server", pflag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	showVersion := fs.Bool("version", false, "Show version information")
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath, fs)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.NewLogger(cfg.Log, "server")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// The push transport needs the IP file's directory to exist
	if dir := filepath.Dir(cfg.Server.IPFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create IP file directory",
				zap.String("dir", dir),
				zap.Error(err))
		}
	}

	router := api.NewRouter(cfg, ipfile.NewReader(cfg.Server.IPFile), logger)

	server := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router.Handler(),
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address()),
			zap.String("ip_file", cfg.Server.IPFile))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			if errors.Is(err, os.ErrPermission) {
				logger.Fatal("Permission denied binding port; low ports may require root",
					zap.Int("port", cfg.Server.Port),
					zap.Error(err))
			}
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal", zap.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
