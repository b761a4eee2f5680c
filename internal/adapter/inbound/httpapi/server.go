package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collectfs/collectfs/internal/port"
)

// Config tunes the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// BodyLimit caps request bodies in bytes.
	BodyLimit int
	// AuthSecret enables bearer-token authentication when non-empty.
	// Requests without a token still pass through as anonymous; the
	// collection's access rules decide what anonymous callers may do.
	AuthSecret string
	// AnonymousPrincipal, when non-empty, is the principal assigned to
	// requests no token identified.
	AnonymousPrincipal string
}

// Server exposes collections over HTTP: streaming upload and download,
// metadata queries, updates, and removal.
type Server struct {
	app      *fiber.App
	cfg      Config
	resolver port.CollectionResolver
}

// NewServer builds the fiber app with its middleware and routes.
func NewServer(cfg Config, resolver port.CollectionResolver) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:         cfg.BodyLimit,
		StreamRequestBody: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(metricsMiddleware())
	if cfg.AuthSecret != "" {
		app.Use(authMiddleware(cfg.AuthSecret))
	}
	if cfg.AnonymousPrincipal != "" {
		app.Use(anonymousMiddleware(cfg.AnonymousPrincipal))
	}

	s := &Server{
		app:      app,
		cfg:      cfg,
		resolver: resolver,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	files := s.app.Group("/collections/:collection/files")
	files.Post("/", s.handleUpload)
	files.Get("/", s.handleFind)
	files.Delete("/", s.handleRemoveBySelector)
	files.Get("/:id", s.handleMetadata)
	files.Patch("/:id", s.handleUpdate)
	files.Delete("/:id", s.handleRemove)
	files.Get("/:id/content", s.handleDownload)
}

// Start answers requests until Stop is called.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Addr)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
