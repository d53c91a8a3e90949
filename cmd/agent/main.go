package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ipbeacon/internal/agent/cache"
	"ipbeacon/internal/agent/config"
	"ipbeacon/internal/agent/monitor"
	"ipbeacon/internal/agent/probe"
	"ipbeacon/internal/agent/pusher"
	"ipbeacon/internal/logging"
	"ipbeacon/internal/version"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("ipbeacon-agent", pflag.ExitOnError)
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

	logger, err := logging.NewLogger(cfg.Log, "agent")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := pusher.NewPusher(pusher.Config{
		Destination:     cfg.Agent.Server,
		RemotePath:      cfg.Agent.RemotePath,
		KeyFile:         cfg.Agent.SSHKey,
		KnownHostsFile:  cfg.Agent.KnownHosts,
		InsecureHostKey: cfg.Agent.InsecureHostKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create pusher", zap.Error(err))
	}

	m := monitor.NewMonitor(cfg,
		probe.NewProber(cfg.Agent.Providers, logger),
		p,
		cache.NewStore(cfg.Agent.CacheFile, logger),
		logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := m.Start(ctx); err != nil {
		logger.Error("Monitor error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
