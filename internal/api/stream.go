package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sanverite/statusboard/internal/broadcast"
)

// streamWriteTimeout bounds a single frame write to a streaming client.
const streamWriteTimeout = 5 * time.Second

// subscribe registers a subscriber for a streaming handler and lifts the
// server-wide deadlines for this connection. The caller owns the subscription.
func (s *Server) subscribe(w http.ResponseWriter) (*broadcast.Subscription, bool) {
	sub, err := s.bc.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return nil, false
	}
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
	return sub, true
}

// handleEvents streams mode changes as Server-Sent Events. The first event
// is the current mode; each later event is one broadcast.
// Method: GET
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sub, ok := s.subscribe(w)
	if !ok {
		return
	}
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream unsupported", "error", err)
		return
	}
	s.logger.Debug("event stream opened", "subscriber", sub.ID())

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("event stream closed by client", "subscriber", sub.ID())
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("encode event", "error", err)
				return
			}
			_ = rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-keepAlive.C:
			_ = rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// handleWebSocket streams mode changes as JSON text frames. Inbound frames
// are ignored; the stream ends with StatusGoingAway when the subscription is
// dropped or the daemon shuts down.
// Method: GET (upgrade)
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sub, ok := s.subscribe(w)
	if !ok {
		return
	}
	defer sub.Close()

	// Displays are served from other origins on the LAN.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	s.logger.Debug("websocket opened", "subscriber", sub.ID(), "remote", r.RemoteAddr)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("websocket closed by client", "subscriber", sub.ID())
			return
		case msg, ok := <-sub.C():
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream ended")
				return
			}
			if err := writeFrame(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("websocket write failed", "subscriber", sub.ID(), "error", err)
				}
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, msg broadcast.Message) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
