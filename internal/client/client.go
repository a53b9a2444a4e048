// Package client talks to a running statusboard daemon over its HTTP API.
// The CLI subcommands are thin wrappers around it.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sanverite/statusboard/internal/api"
	"github.com/sanverite/statusboard/internal/broadcast"
)

// DefaultAddr is the daemon address used when none is given.
const DefaultAddr = "127.0.0.1:8000"

// ErrUnknownMode is returned by SetMode when the daemon rejects the key.
var ErrUnknownMode = errors.New("client: unknown mode")

// Client is a small HTTP client for the /v1 API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for addr, either host:port or a full http(s) URL.
func New(addr string, hc *http.Client) (*Client, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("client: parse address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("client: missing host in %q", addr)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

func (c *Client) endpoint(scheme, path string) string {
	u := *c.base
	if scheme != "" {
		u.Scheme = scheme
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + api.APIVersion + path
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint("", path), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// StatusError is returned when the daemon answers with an unexpected status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: unexpected status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("client: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

func statusError(resp *http.Response) error {
	var apiErr api.APIError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &StatusError{Code: resp.StatusCode}
	if json.Unmarshal(body, &apiErr) == nil {
		se.Message = apiErr.Error
	}
	return se
}

// Status fetches GET /v1/status.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var st api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", http.StatusOK, &st)
	return st, err
}

// Modes fetches GET /v1/modes.
func (c *Client) Modes(ctx context.Context) (api.ModesResponse, error) {
	var mr api.ModesResponse
	err := c.do(ctx, http.MethodGet, "/modes", http.StatusOK, &mr)
	return mr, err
}

// SetMode posts a manual override.
func (c *Client) SetMode(ctx context.Context, key string) error {
	err := c.do(ctx, http.MethodPost, "/mode/"+url.PathEscape(key), http.StatusNoContent, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusBadRequest {
		return fmt.Errorf("%w: %q", ErrUnknownMode, key)
	}
	return err
}

// ToggleDoNotDisturb flips the flag and returns its new value.
func (c *Client) ToggleDoNotDisturb(ctx context.Context) (bool, error) {
	var dr api.DoNotDisturbResponse
	err := c.do(ctx, http.MethodPost, "/dnd", http.StatusOK, &dr)
	return dr.DoNotDisturb, err
}

// Cycle advances the daemon to the next mode and returns it.
func (c *Client) Cycle(ctx context.Context) (api.ModeView, error) {
	var mv api.ModeView
	err := c.do(ctx, http.MethodPost, "/cycle", http.StatusOK, &mv)
	return mv, err
}

// Watch opens the WebSocket stream and calls fn for every message, the
// current mode first. It returns nil when ctx is cancelled or the daemon
// ends the stream, and the first error from fn otherwise.
func (c *Client) Watch(ctx context.Context, fn func(broadcast.Message) error) error {
	scheme := "ws"
	if c.base.Scheme == "https" {
		scheme = "wss"
	}
	conn, _, err := websocket.Dial(ctx, c.endpoint(scheme, "/ws"), &websocket.DialOptions{
		HTTPClient: &http.Client{Transport: c.http.Transport},
	})
	if err != nil {
		return fmt.Errorf("client: dial stream: %w", err)
	}
	defer conn.CloseNow()

	for {
		var msg broadcast.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusGoingAway, websocket.StatusNormalClosure:
				return nil
			}
			return fmt.Errorf("client: read stream: %w", err)
		}
		if err := fn(msg); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return err
		}
	}
}
