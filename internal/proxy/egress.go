package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/imagefinder/internal/config"
)

// Mode is the way crawl requests leave the process.
type Mode int

const (
	// ModeDirect fetches without a proxy.
	ModeDirect Mode = iota
	// ModeSOCKS5 fetches through an external SOCKS5 proxy.
	ModeSOCKS5
	// ModeTor fetches through an embedded Tor daemon.
	ModeTor
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeSOCKS5:
		return "socks5"
	case ModeTor:
		return "tor"
	default:
		return "unknown"
	}
}

// Egress owns the HTTP client used for crawling and whatever is behind it.
type Egress struct {
	mode     Mode
	client   *Client
	embedded *Embedded
	timeout  time.Duration
}

// Open prepares the egress described by cfg. An external proxy must pass
// CheckConnection; the embedded daemon must bootstrap. Close releases it.
func Open(ctx context.Context, cfg config.ServeConfig, logger *slog.Logger) (*Egress, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Egress{mode: ModeDirect, timeout: cfg.FetchTimeout}

	switch {
	case cfg.Tor:
		logger.Info("starting embedded Tor daemon", "timeout", cfg.TorStartupTimeout)
		embedded := NewEmbedded(WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, err
		}
		client, err := embedded.NewClient(cfg.FetchTimeout)
		if err != nil {
			_ = embedded.Stop() //nolint:errcheck // best effort
			return nil, err
		}
		e.mode, e.client, e.embedded = ModeTor, client, embedded

	case cfg.TorProxyAddress != "":
		client, err := NewClient(cfg.TorProxyAddress, cfg.FetchTimeout)
		if err != nil {
			return nil, err
		}
		if status := client.CheckConnection(ctx); status != StatusOK {
			return nil, fmt.Errorf("proxy %s: %w", cfg.TorProxyAddress, status.Err())
		}
		e.mode, e.client = ModeSOCKS5, client
	}

	logger.Info("egress ready", "mode", e.mode.String(), "proxy", e.ProxyAddress())
	return e, nil
}

// Mode returns the egress mode.
func (e *Egress) Mode() Mode {
	return e.mode
}

// ProxyAddress returns the SOCKS5 address in use, or "" for direct egress.
func (e *Egress) ProxyAddress() string {
	if e.client == nil {
		return ""
	}
	return e.client.Address()
}

// HTTPClient returns a fresh client for the configured egress.
func (e *Egress) HTTPClient() *http.Client {
	if e.client != nil {
		return e.client.HTTPClient()
	}
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: e.timeout, CheckRedirect: limitRedirects}
	}
	return &http.Client{
		Transport:     transport.Clone(),
		Timeout:       e.timeout,
		CheckRedirect: limitRedirects,
	}
}

// Close stops the embedded daemon, if any.
func (e *Egress) Close() error {
	if e.embedded == nil {
		return nil
	}
	return e.embedded.Stop()
}
