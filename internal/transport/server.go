// Package transport runs the WebSocket endpoint the host plugin streams
// presence and query envelopes to.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/pptracker/recorder/internal/dispatcher"
	"github.com/pptracker/recorder/internal/gate"
	"github.com/pptracker/recorder/internal/presence"
	"github.com/pptracker/recorder/pkg/streaming"
)

const (
	sendChSize      = 256
	writeWait       = 10 * time.Second
	maxMessageBytes = 1 << 20
	shutdownWait    = 5 * time.Second
)

// Saver triggers a persistence flush.
type Saver interface {
	RequestSave()
}

// QueryMetrics is an optional hook for access-gate decisions.
type QueryMetrics interface {
	QueryHandled(authorized bool)
}

// Dependencies holds the collaborators of the transport server.
type Dependencies struct {
	Presence *presence.Registry
	Gate     *gate.Service
	Saver    Saver
	Metrics  QueryMetrics
	Logger   *slog.Logger
}

// Server accepts host plugin connections and routes their envelopes.
type Server struct {
	deps   Dependencies
	disp   *dispatcher.Dispatcher
	logger *slog.Logger

	upgrader ws.Upgrader
}

// NewServer creates a transport server and registers the envelope handlers.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	disp, err := dispatcher.New(deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	s := &Server{
		deps:   deps,
		disp:   disp,
		logger: deps.Logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	disp.Register(streaming.TypeHello, s.handleHello)
	disp.Register(streaming.TypePresence, s.handlePresence)
	disp.Register(streaming.TypePlayerLeft, s.handlePlayerLeft)
	disp.Register(streaming.TypeQuery, s.handleQuery, dispatcher.Logged())
	// Save triggers are coalesced by the worker, so they can be handled off
	// the read loop. Presence and player_left stay synchronous: a removal
	// must never overtake an earlier roster update.
	disp.Register(streaming.TypeSave, s.handleSave, dispatcher.Buffered(16))

	return s, nil
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func ack(forType string) []byte {
	data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: forType})
	return data
}

func (s *Server) handleHello(msg dispatcher.Message) (any, error) {
	var p streaming.HelloPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}

	s.logger.Info("Host connected", "serverName", p.ServerName, "worldId", p.WorldID)
	if msg.Reply != nil {
		msg.Reply(ack(streaming.TypeHello))
	}
	return nil, nil
}

func (s *Server) handlePresence(msg dispatcher.Message) (any, error) {
	var p streaming.PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode presence: %w", err)
	}

	s.deps.Presence.Update(p.Players)
	return nil, nil
}

func (s *Server) handlePlayerLeft(msg dispatcher.Message) (any, error) {
	var p streaming.PlayerLeftPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode player_left: %w", err)
	}

	s.deps.Presence.Remove(p.UID)
	return nil, nil
}

// handleQuery runs the query through the gate. A denied requester gets no
// response frame at all.
func (s *Server) handleQuery(msg dispatcher.Message) (any, error) {
	var p streaming.QueryPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}

	resp, err := s.deps.Gate.Handle(p.RequesterUID, p.RequesterName, p.Auth, p.Request)
	if err != nil {
		if errors.Is(err, gate.ErrUnauthorized) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.QueryHandled(false)
			}
			return nil, nil
		}
		return nil, err
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.QueryHandled(true)
	}

	data, err := marshalEnvelope(streaming.TypeQueryResult, streaming.QueryResultPayload{Response: *resp})
	if err != nil {
		return nil, err
	}
	if msg.Reply != nil {
		msg.Reply(data)
	}
	return nil, nil
}

func (s *Server) handleSave(msg dispatcher.Message) (any, error) {
	s.deps.Saver.RequestSave()
	if msg.Reply != nil {
		msg.Reply(ack(streaming.TypeSave))
	}
	return nil, nil
}

// Handler returns the HTTP handler that upgrades requests to WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		s.serveConn(wsConn)
	})
}

// serveConn reads envelopes until the peer disconnects. Writes go through a
// single goroutine fed by the connection's send channel.
func (s *Server) serveConn(wsConn *ws.Conn) {
	c := &conn{
		conn:   wsConn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	defer c.close()

	// Once the host is gone its last report is stale; recording it further
	// would fabricate history.
	defer s.deps.Presence.Reset()

	go c.writeLoop()

	wsConn.SetReadLimit(maxMessageBytes)

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.logger.Warn("WebSocket read error", "remote", wsConn.RemoteAddr(), "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Debug("Undecodable frame received", "remote", wsConn.RemoteAddr(), "error", err)
			continue
		}

		if _, err := s.disp.Dispatch(dispatcher.Message{
			Type:     env.Type,
			Payload:  env.Payload,
			Received: time.Now(),
			Reply:    c.send,
		}); err != nil {
			s.logger.Warn("Envelope handling failed", "type", env.Type, "error", err)
		}
	}
}

// ListenAndServe runs the WebSocket endpoint until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("Transport listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// conn wraps a WebSocket connection with a single write goroutine.
type conn struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	closed bool

	logger *slog.Logger
}

// writeLoop drains sendCh and writes frames to the WebSocket.
// Only one writeLoop runs per connection; it returns on error or shutdown.
func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				return
			}
		}
	}
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *conn) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping frame")
	}
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.conn.Close()
}
