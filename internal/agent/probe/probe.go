package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ipbeacon/internal/utils"

	"go.uber.org/zap"
)

const (
	// requestTimeout bounds a single provider request
	requestTimeout = 5 * time.Second
	// probeTimeout bounds one whole probe across all providers
	probeTimeout = 10 * time.Second

	maxResponseSize = 64
)

// DefaultProviders are the external address-echo services tried in order
var DefaultProviders = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
	"https://checkip.amazonaws.com",
}

// Prober determines the current public IPv4 address using external
// echo services tried in order
type Prober struct {
	providers []string
	client    *http.Client
	logger    *zap.Logger
}

// NewProber creates a new Prober. An empty provider list falls back to
// DefaultProviders
func NewProber(providers []string, logger *zap.Logger) *Prober {
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   requestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: requestTimeout,
	}

	return &Prober{
		providers: providers,
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		logger: logger,
	}
}

// Probe returns the first valid public IPv4 address reported by the
// configured providers. Provider failures are logged and skipped; an
// error is returned only when every provider fails
func (p *Prober) Probe(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	for _, provider := range p.providers {
		ip, err := p.fetch(probeCtx, provider)
		if err != nil {
			p.logger.Warn("Failed to get IP from provider",
				zap.String("provider", provider),
				zap.Error(err))
			continue
		}
		return ip, nil
	}

	return "", fmt.Errorf("all %d providers failed", len(p.providers))
}

// fetch queries a single provider and validates its response
func (p *Prober) fetch(ctx context.Context, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "ipbeacon/1.0")
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("empty response body")
	}
	if !utils.IsValidIPv4(ip) {
		return "", fmt.Errorf("invalid IPv4 address: %q", ip)
	}

	return ip, nil
}
