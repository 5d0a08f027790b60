// Package api exposes the gateway's small status/diagnostics HTTP surface:
// health, a buffer snapshot, project reload, and a diagnostics websocket.
// It deliberately does not expose project editing (that belongs to an
// external collaborator's interface); this is operational surface only.
package api

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/diagnostics"
	"github.com/edgeflow/modgate/internal/opcua"
	"github.com/edgeflow/modgate/internal/project"
	"github.com/edgeflow/modgate/internal/projectstore"
	"github.com/edgeflow/modgate/internal/runtime"
)

// Version is set by the build, reported on /api/v1/health.
var Version = "0.1.0"

// Server wires the buffer, runtime monitor, OPC UA bridge, project store
// and diagnostics hub behind a Fiber app.
type Server struct {
	app      *fiber.App
	buf      *buffer.Buffer
	monitor  *runtime.Monitor
	bridge   *opcua.Bridge
	store    *projectstore.Store
	hub      *diagnostics.Hub
	sink     *diagnostics.Sink
	log      *zap.Logger
	mu       sync.RWMutex
	reloadFn func(p *project.Project) error
}

// New builds a Server and registers all routes on a fresh Fiber app.
func New(buf *buffer.Buffer, monitor *runtime.Monitor, bridge *opcua.Bridge, store *projectstore.Store, hub *diagnostics.Hub, sink *diagnostics.Sink, log *zap.Logger, reloadFn func(p *project.Project) error) *Server {
	s := &Server{
		buf:      buf,
		monitor:  monitor,
		bridge:   bridge,
		store:    store,
		hub:      hub,
		sink:     sink,
		log:      log,
		reloadFn: reloadFn,
	}

	app := fiber.New(fiber.Config{
		AppName:               "modgate v" + Version,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	s.app = app
	s.setupRoutes()
	return s
}

// Listen starts serving on addr. Blocks until the server stops or errors.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) setupRoutes() {
	v1 := s.app.Group("/api/v1")

	v1.Get("/health", s.healthCheck)
	v1.Get("/buffer", s.getBufferSnapshot)
	v1.Get("/buffer/:path", s.getBufferEntry)
	v1.Post("/projects/:name/reload", s.reloadProject)
	v1.Get("/projects", s.listProjects)

	s.app.Use("/ws/diagnostics", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/diagnostics", websocket.New(s.hub.HandleWebSocket))
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) getBufferSnapshot(c *fiber.Ctx) error {
	return c.JSON(s.buf.Snapshot())
}

func (s *Server) getBufferEntry(c *fiber.Ctx) error {
	path := c.Params("path")
	entry, ok := s.buf.GetEntry(path)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown tag path"})
	}
	return c.JSON(entry)
}

func (s *Server) listProjects(c *fiber.Ctx) error {
	names, err := s.store.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"projects": names})
}

func (s *Server) reloadProject(c *fiber.Ctx) error {
	name := c.Params("name")
	p, err := s.store.Load(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	s.mu.RLock()
	reloadFn := s.reloadFn
	s.mu.RUnlock()
	if reloadFn == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "reload not wired"})
	}
	if err := reloadFn(p); err != nil {
		s.log.Error("project reload failed", zap.String("project", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "reloaded", "project": name})
}
