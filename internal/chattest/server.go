// Package chattest runs an in-process chat backend for tests: a websocket
// endpoint that relays every binary frame to all connected clients (the
// sender included) and an /api group for REST fakes.
package chattest

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Server struct {
	app *fiber.App
	ln  net.Listener

	mu      sync.Mutex
	clients map[*client]struct{}
	relay   bool

	received chan []byte
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return c.conn.WriteMessage(messageType, data)
}

// NewServer starts the backend on a random local port. routes registers REST
// fakes under /api and may be nil. The server is shut down by t.Cleanup.
func NewServer(t testing.TB, routes func(api fiber.Router)) *Server {
	t.Helper()

	s := &Server{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		clients:  make(map[*client]struct{}),
		relay:    true,
		received: make(chan []byte, 256),
	}

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handle))

	if routes != nil {
		routes(s.app.Group("/api"))
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.ln = ln

	go s.app.Listener(ln)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) handle(conn *websocket.Conn) {
	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case s.received <- data:
		default:
		}

		s.mu.Lock()
		relay := s.relay
		s.mu.Unlock()
		if relay {
			s.Broadcast(websocket.BinaryMessage, data)
		}
	}
}

func (s *Server) WSURL() string {
	return "ws://" + s.ln.Addr().String() + "/ws"
}

func (s *Server) BaseURL() string {
	return "http://" + s.ln.Addr().String() + "/api"
}

// SetRelay turns fan-out of received frames on or off.
func (s *Server) SetRelay(on bool) {
	s.mu.Lock()
	s.relay = on
	s.mu.Unlock()
}

// Received yields every binary frame a client sent.
func (s *Server) Received() <-chan []byte {
	return s.received
}

// Broadcast writes one frame to every connected client.
func (s *Server) Broadcast(messageType int, data []byte) {
	for _, c := range s.snapshot() {
		c.write(messageType, data)
	}
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// DropAll closes every client connection without a close handshake. The
// expired read deadline makes handle return so fiber releases the socket.
func (s *Server) DropAll() {
	for _, c := range s.snapshot() {
		c.conn.SetReadDeadline(time.Now())
		c.conn.Close()
	}
}

func (s *Server) Close() {
	s.DropAll()
	s.app.ShutdownWithTimeout(time.Second)
}

func (s *Server) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}
