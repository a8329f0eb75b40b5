package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/ordersync/internal/ordersync"
)

const (
	// EventsPath is where clients connect.
	EventsPath = "/events"
	// HealthPath reports liveness and the client count.
	HealthPath = "/health"

	defaultBuffer   = 16
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 2 * time.Second
)

// Message is the frame pushed to every client.
type Message struct {
	Type   string                  `json:"type"`
	Detail ordersync.StatusChanged `json:"detail"`
}

// Server broadcasts status changes to websocket clients.
type Server struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithBuffer sets how many frames may queue per client before it is dropped.
func WithBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithCheckOrigin replaces the default same-origin policy.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New returns a relay with no clients.
func New(logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		log:     logger.Named("relay"),
		buffer:  defaultBuffer,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler serves EventsPath and HealthPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, s.handleEvents)
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

// Publish queues ev for every client. A client whose queue is full is
// disconnected; Publish never blocks on the network.
func (s *Server) Publish(ev ordersync.StatusChanged) {
	frame, err := json.Marshal(Message{Type: ordersync.EventStatusChanged, Detail: ev})
	if err != nil {
		s.log.Error("encode event", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			s.log.Warn("dropping slow client", zap.String("remote", c.remote))
			s.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then disconnects
// every client and waits for their goroutines.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("relay listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.Close()
		<-errCh
		return nil
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay serve: %w", err)
	}
}

// Close disconnects every client and waits for their goroutines. New
// connections are refused afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.Clients(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, r.RemoteAddr, s.buffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()
	s.log.Debug("client connected", zap.String("remote", c.remote))

	go func() {
		defer s.wg.Done()
		c.writeLoop()
	}()

	defer s.wg.Done()
	c.readLoop()
	s.remove(c)
	s.log.Debug("client disconnected", zap.String("remote", c.remote))
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.stop()
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	once   sync.Once
}

func newClient(conn *websocket.Conn, remote string, buffer int) *client {
	return &client{conn: conn, remote: remote, send: make(chan []byte, buffer)}
}

// stop ends the write loop, which then closes the connection.
func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
}

// readLoop discards client frames until the connection fails or closes.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
