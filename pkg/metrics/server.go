package metrics

import (
	"errors"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics for scraping while the client runs.
type Server struct {
	app *fiber.App
	ln  net.Listener
}

// NewServer builds the fiber app serving the default prometheus registry.
func NewServer() *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "novelchat-metrics",
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return &Server{app: app}
}

// Start listens on addr and serves in the background. The bound address is
// returned so callers can pass ":0".
func (s *Server) Start(addr string) (string, error) {
	if s.ln != nil {
		return "", errors.New("metrics server already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.ln = ln
	go s.app.Listener(ln)
	return ln.Addr().String(), nil
}

// App returns the underlying fiber app (tests use app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
