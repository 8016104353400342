package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mossy-p/room-signaling/config"
)

// ErrNoTunnel is returned when the control API lists no tunnels.
var ErrNoTunnel = errors.New("no tunnel available")

const pollInterval = 500 * time.Millisecond

type tunnelList struct {
	Tunnels []struct {
		Name      string `json:"name"`
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// FetchPublicURL asks the ngrok control API for its tunnels and returns
// the public URL, preferring an https tunnel.
func FetchPublicURL(ctx context.Context, client *http.Client, apiURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("build tunnel request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query tunnel api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query tunnel api: unexpected status %d", resp.StatusCode)
	}

	var list tunnelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode tunnel list: %w", err)
	}

	publicURL := ""
	for _, t := range list.Tunnels {
		if t.PublicURL == "" {
			continue
		}
		if t.Proto == "https" {
			return t.PublicURL, nil
		}
		if publicURL == "" {
			publicURL = t.PublicURL
		}
	}
	if publicURL == "" {
		return "", ErrNoTunnel
	}
	return publicURL, nil
}

// Bootstrapper runs ngrok next to the server and discovers its public URL.
type Bootstrapper struct {
	cfg    config.TunnelConfig
	port   string
	client *http.Client
	log    *slog.Logger

	mu        sync.RWMutex
	cmd       *exec.Cmd
	publicURL string
}

func NewBootstrapper(cfg config.TunnelConfig, port string, log *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		cfg:    cfg,
		port:   port,
		client: &http.Client{Timeout: 2 * time.Second},
		log:    log,
	}
}

// Start launches the tunnel process and polls the control API until a
// public URL shows up or the startup timeout passes. Failures are logged
// and leave the bootstrapper without a URL.
func (b *Bootstrapper) Start(ctx context.Context) string {
	cmd := exec.Command(b.cfg.Binary, "http", b.port)
	if err := cmd.Start(); err != nil {
		b.log.Warn("tunnel process failed to start", "binary", b.cfg.Binary, "err", err)
		return ""
	}
	b.mu.Lock()
	b.cmd = cmd
	b.mu.Unlock()

	go func() {
		if err := cmd.Wait(); err != nil {
			b.log.Debug("tunnel process exited", "err", err)
		}
	}()

	url, err := b.waitForURL(ctx)
	if err != nil {
		b.log.Warn("could not get tunnel URL automatically, check the ngrok terminal", "err", err)
		return ""
	}

	b.mu.Lock()
	b.publicURL = url
	b.mu.Unlock()
	b.log.Info("tunnel ready", "public_url", url)
	return url
}

func (b *Bootstrapper) waitForURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.StartupTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		url, err := FetchPublicURL(ctx, b.client, b.cfg.APIURL)
		if err == nil {
			return url, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("tunnel not ready after %s: %w", b.cfg.StartupTimeout, lastErr)
		case <-ticker.C:
		}
	}
}

// PublicURL returns the discovered URL, empty if there is none.
func (b *Bootstrapper) PublicURL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.publicURL
}

// Stop kills the tunnel process if it is running.
func (b *Bootstrapper) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return
	}
	if err := b.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		b.log.Warn("failed to stop tunnel process", "err", err)
	}
	b.cmd = nil
}
