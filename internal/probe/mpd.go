package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fhs/gompd/v2/mpd"
)

// DefaultMPDAddress is the stock MPD listen address.
const DefaultMPDAddress = "localhost:6600"

// MPDConfig locates an MPD server.
type MPDConfig struct {
	// Network is "tcp" or "unix". Empty means "tcp".
	Network string
	// Address is "host:port" for tcp or a socket path for unix.
	// Empty means DefaultMPDAddress.
	Address  string
	Password string
}

// ErrMPDBusy is returned while an earlier query has not finished.
var ErrMPDBusy = errors.New("mpd query still in flight")

// MPD queries playback state from a Music Player Daemon.
type MPD struct {
	cfg MPDConfig

	// inflight is set while a query goroutine runs; at most one exists.
	inflight atomic.Bool
}

// NewMPD validates cfg.
func NewMPD(cfg MPDConfig) (*MPD, error) {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	switch cfg.Network {
	case "tcp":
		if cfg.Address == "" {
			cfg.Address = DefaultMPDAddress
		}
		if _, _, err := splitHostPortStrict(cfg.Address); err != nil {
			return nil, fmt.Errorf("invalid mpd address: %w", err)
		}
	case "unix":
		if strings.TrimSpace(cfg.Address) == "" {
			return nil, errors.New("invalid mpd address: empty socket path")
		}
	default:
		return nil, fmt.Errorf("invalid mpd network %q", cfg.Network)
	}
	return &MPD{cfg: cfg}, nil
}

// Playing reports whether MPD's player state is "play". Each call opens
// and closes its own connection. The client library has no context
// support, so the query runs in a goroutine and Playing returns when ctx
// ends; the abandoned connection is closed once the query completes.
// While an abandoned query is still running, Playing fails fast with
// ErrMPDBusy instead of starting another.
func (m *MPD) Playing(ctx context.Context) (bool, error) {
	if !m.inflight.CompareAndSwap(false, true) {
		return false, ErrMPDBusy
	}
	type result struct {
		playing bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		playing, err := m.query()
		m.inflight.Store(false)
		done <- result{playing, err}
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("mpd status: %w", ctx.Err())
	case r := <-done:
		return r.playing, r.err
	}
}

func (m *MPD) query() (bool, error) {
	var (
		c   *mpd.Client
		err error
	)
	if m.cfg.Password != "" {
		c, err = mpd.DialAuthenticated(m.cfg.Network, m.cfg.Address, m.cfg.Password)
	} else {
		c, err = mpd.Dial(m.cfg.Network, m.cfg.Address)
	}
	if err != nil {
		return false, fmt.Errorf("mpd dial: %w", err)
	}
	defer c.Close()

	st, err := c.Status()
	if err != nil {
		return false, fmt.Errorf("mpd status: %w", err)
	}
	return st["state"] == "play", nil
}

// splitHostPortStrict validates "host:port" and returns host and port strings.
func splitHostPortStrict(hp string) (host, port string, err error) {
	host, port, err = net.SplitHostPort(hp)
	if err != nil {
		return "", "", err
	}
	// Validate port is numeric and in range; leave as string on success.
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", "", fmt.Errorf("invalid port %q", port)
	}
	if strings.TrimSpace(host) == "" {
		return "", "", errors.New("empty host")
	}
	return host, port, nil
}
