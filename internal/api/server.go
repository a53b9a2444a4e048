package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sanverite/statusboard/internal/broadcast"
	"github.com/sanverite/statusboard/internal/core"
)

// Constants for route prefixing. Versioning is explicit to allow non-breaking additions.
const (
	APIVersion     = "v1"
	DefaultAddress = "0.0.0.0:8000"
)

// ServerOptions configures the HTTP server.
// Timeouts are conservative defaults for request/response routes; the
// streaming routes lift the read and write deadlines on their connection.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// KeepAlive is the interval of SSE comment lines that keep idle
	// proxies from closing the stream and expose dead clients.
	KeepAlive time.Duration

	Logger hclog.Logger
}

// Server hosts the HTTP API for the daemon.
type Server struct {
	http   *http.Server
	store  *core.Store
	bc     *broadcast.Broadcaster
	logger hclog.Logger
	opts   ServerOptions
	ln     net.Listener
}

// NewServer constructs a new API server bound to the provided store and
// broadcaster. The server does not start listening until Start is called.
// Shutting the server down closes the broadcaster so streams end.
func NewServer(store *core.Store, bc *broadcast.Broadcaster, opts ServerOptions) *Server {
	if store == nil {
		panic("api.NewServer: store is nil")
	}
	if bc == nil {
		panic("api.NewServer: broadcaster is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 25 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	mux := http.NewServeMux()
	s := &Server{
		store:  store,
		bc:     bc,
		logger: opts.Logger,
		opts:   opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           withBasicMiddleware(mux, opts.Logger),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			ErrorLog:          opts.Logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
			BaseContext: func(l net.Listener) context.Context {
				return context.Background()
			},
		},
	}
	s.http.RegisterOnShutdown(bc.Close)

	// Routes
	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/"+APIVersion+"/status", s.handleStatus)
	mux.HandleFunc("/"+APIVersion+"/modes", s.handleModes)
	mux.HandleFunc("/"+APIVersion+"/mode/{key}", s.handleSetMode)
	mux.HandleFunc("/"+APIVersion+"/dnd", s.handleDoNotDisturb)
	mux.HandleFunc("/"+APIVersion+"/cycle", s.handleCycle)
	mux.HandleFunc("/"+APIVersion+"/events", s.handleEvents)
	mux.HandleFunc("/"+APIVersion+"/ws", s.handleWebSocket)

	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start binds the listen address and serves in a background goroutine.
// Bind errors are returned; use Stop for graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// handleHealthz is a simple readiness/liveness endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": TimeNow().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns the current mode and do-not-disturb flag.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := FromSnapshot(s.store.Get(), s.store.Table(), s.bc.Len())
	writeJSON(w, http.StatusOK, resp)
}

// handleModes lists the configured modes.
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, FromTable(s.store.Table()))
}

// handleSetMode is the manual override.
// Method: POST
// Response: 204 once the change has been queued to every subscriber.
// Errors:
//   - 400 for an unknown mode key, state unchanged
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.PathValue("key")
	if err := s.store.SetMode(key); err != nil {
		if errors.Is(err, core.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("mode set", "mode", key)
	w.WriteHeader(http.StatusNoContent)
}

// handleDoNotDisturb flips the do-not-disturb flag. Not broadcast: the
// flag takes effect on the next collector cycle.
// Method: POST
// Response (200): DoNotDisturbResponse JSON
func (s *Server) handleDoNotDisturb(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	on := s.store.ToggleDoNotDisturb()
	s.logger.Info("do-not-disturb toggled", "on", on)
	writeJSON(w, http.StatusOK, DoNotDisturbResponse{DoNotDisturb: on})
}

// handleCycle advances to the next mode in table order.
// Method: POST
// Response (200): ModeView JSON of the new mode
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m := s.store.CycleMode()
	s.logger.Info("mode cycled", "mode", m.Key)
	writeJSON(w, http.StatusOK, FromMode(m))
}

// Basic middleware: sets JSON content type and very lightweight logging.
// No CORS or auth because this is a LAN display service.
func withBasicMiddleware(next http.Handler, logger hclog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := TimeNow()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"duration_ms", dur.Milliseconds(), "ua", r.UserAgent())
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{
		Error:     msg,
		Timestamp: TimeNow().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
