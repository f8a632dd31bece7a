// Package gateway is the transport edge: a Fiber server exposing the voice
// session WebSocket, the observer WebSocket and the status API.
package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/aria-voice/go-aria/pkg/hub"
	"github.com/aria-voice/go-aria/pkg/voice"
)

// Factory builds one orchestrator per connecting session, wiring in the
// configured detector and providers.
type Factory func() (*voice.Orchestrator, error)

// Server routes voice sessions to orchestrators and fans session activity
// out to dashboard observers.
type Server struct {
	app     *fiber.App
	port    string
	factory Factory

	observers *hub.Hub

	mu       sync.RWMutex
	sessions map[string]*voice.Orchestrator

	hubCancel context.CancelFunc
	logger    *slog.Logger
}

// NewServer creates the gateway. Start begins serving.
func NewServer(port string, factory Factory) *Server {
	s := &Server{
		port:      port,
		factory:   factory,
		observers: hub.New(),
		sessions:  make(map[string]*voice.Orchestrator),
		logger:    slog.Default().With("component", "gateway"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "aria",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/sessions", s.handleSessions)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(s.handleSessionWS))
	app.Get("/ws/observe", websocket.New(s.handleObserveWS))

	s.app = app
	return s
}

// Start runs the observer hub and listens on the configured port. Blocks
// until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go s.observers.Run(ctx)

	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops every session, the observer hub and the HTTP server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	orchs := make([]*voice.Orchestrator, 0, len(s.sessions))
	for _, o := range s.sessions {
		orchs = append(orchs, o)
	}
	s.sessions = make(map[string]*voice.Orchestrator)
	s.mu.Unlock()

	for _, o := range orchs {
		o.Stop()
	}
	if s.hubCancel != nil {
		s.hubCancel()
	}
	return s.app.Shutdown()
}

// SessionCount returns the number of active voice sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) addSession(o *voice.Orchestrator) {
	s.mu.Lock()
	s.sessions[o.ID()] = o
	s.mu.Unlock()
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"sessions":  s.SessionCount(),
		"observers": s.observers.ClientCount(),
	})
}

// sessionInfo is one row of the sessions listing.
type sessionInfo struct {
	ID       string        `json:"id"`
	State    string        `json:"state"`
	Speaking bool          `json:"speaking"`
	Metrics  voice.Metrics `json:"metrics"`
}

func (s *Server) handleSessions(c *fiber.Ctx) error {
	s.mu.RLock()
	out := make([]sessionInfo, 0, len(s.sessions))
	for id, o := range s.sessions {
		out = append(out, sessionInfo{
			ID:       id,
			State:    o.State().String(),
			Speaking: o.IsSpeaking(),
			Metrics:  o.Metrics(),
		})
	}
	s.mu.RUnlock()
	return c.JSON(out)
}

// handleObserveWS attaches a dashboard client to the observer hub.
func (s *Server) handleObserveWS(c *websocket.Conn) {
	client := hub.NewClient(s.observers, c)
	client.Run()
}
