package monitor

import (
	"context"
	"fmt"
	"time"

	"ipbeacon/internal/agent/cache"
	"ipbeacon/internal/agent/config"

	"go.uber.org/zap"
)

// Prober determines the current public IPv4 address
type Prober interface {
	Probe(ctx context.Context) (string, error)
}

// Pusher transfers a new address to the server host
type Pusher interface {
	Push(ctx context.Context, ip string) error
}

// Monitor drives the probe -> compare -> push -> cache cycle
type Monitor struct {
	config *config.Config
	prober Prober
	pusher Pusher
	cache  *cache.Store
	logger *zap.Logger
}

// NewMonitor creates a new Monitor instance
func NewMonitor(cfg *config.Config, prober Prober, pusher Pusher, store *cache.Store, logger *zap.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		prober: prober,
		pusher: pusher,
		cache:  store,
		logger: logger,
	}
}

// Start runs the monitoring loop. The first cycle runs immediately,
// then every configured interval until ctx is canceled. In single-run
// mode exactly one cycle runs and its error is returned
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("Starting IP monitor",
		zap.String("destination", m.config.Agent.Server),
		zap.String("remote_path", m.config.Agent.RemotePath),
		zap.Duration("interval", m.config.Agent.Interval),
		zap.String("cache_file", m.cache.Path()),
		zap.Bool("once", m.config.Agent.Once))

	if err := m.runOnce(ctx); err != nil {
		if m.config.Agent.Once {
			return err
		}
		m.logger.Error("IP check failed", zap.Error(err))
	}

	if m.config.Agent.Once {
		return nil
	}

	ticker := time.NewTicker(m.config.Agent.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.runOnce(ctx); err != nil {
				m.logger.Error("IP check failed", zap.Error(err))
			}
		case <-ctx.Done():
			m.logger.Info("Stopping IP monitor")
			return nil
		}
	}
}

// runOnce performs a single probe/compare/push/cache cycle
func (m *Monitor) runOnce(ctx context.Context) error {
	currentIP, err := m.prober.Probe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get public IP: %w", err)
	}
	m.logger.Debug("Got public IP", zap.String("ip", currentIP))

	cachedIP := m.cache.Read()
	if !changed(currentIP, cachedIP) {
		m.logger.Debug("IP unchanged", zap.String("ip", currentIP))
		return nil
	}

	m.logger.Info("IP change detected",
		zap.String("old_ip", cachedIP),
		zap.String("new_ip", currentIP))

	if err := m.pusher.Push(ctx, currentIP); err != nil {
		// Cache stays untouched so the next cycle retries the push
		return fmt.Errorf("failed to push new IP: %w", err)
	}

	if err := m.cache.Write(currentIP); err != nil {
		// Worst case the next cycle pushes the same value again,
		// which is harmless
		m.logger.Error("Failed to update cache after push", zap.Error(err))
	}

	return nil
}

// changed reports whether the candidate differs from the cached value.
// An absent cached value always counts as changed, forcing the initial push
func changed(candidate, cached string) bool {
	return cached == "" || candidate != cached
}
