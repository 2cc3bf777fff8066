// Package api exposes the cluster context over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rbramwell/halin/internal/config"
	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/publish"
	"github.com/rbramwell/halin/internal/security"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Server serves a single initialized cluster context.
type Server struct {
	app      *fiber.App
	c        *engine.Context
	advisor  *engine.Advisor
	security *security.Manager
	sampler  *engine.Sampler
	exporter *publish.Exporter
	log      *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithExporter enables POST /api/diagnostics/publish.
func WithExporter(e *publish.Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

// WithAdvisor replaces the default rule set.
func WithAdvisor(a *engine.Advisor) Option {
	return func(s *Server) { s.advisor = a }
}

// New builds the fiber app and registers every route.
func New(c *engine.Context, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		c:        c,
		advisor:  engine.NewAdvisor(),
		security: security.NewManager(c),
		sampler:  engine.NewSampler(c),
		log:      c.Logger().With("component", "api"),
	}
	for _, o := range opts {
		o(s)
	}
	metrics.Register()

	s.app = fiber.New(fiber.Config{
		AppName:               "halin",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(logging.FiberMiddleware(s.log))

	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	api.Get("/members", s.members)
	api.Get("/capabilities", s.capabilities)
	api.Get("/diagnostics", s.diagnostics)
	api.Post("/diagnostics/publish", s.publishDiagnostics)
	api.Get("/advice", s.advice)
	api.Get("/samples/:feature", s.samples)
	api.Get("/members/:id/samples/:feature", s.memberSample)
	api.Get("/members/:id/metrics/:metric", s.memberMetric)
	api.Get("/users", s.listUsers)
	api.Delete("/users/:username", s.deleteUser)
	api.Get("/roles", s.listRoles)
	api.Delete("/roles/:role", s.deleteRole)

	s.app.Use(s.notFound)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("http api listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	label := "ERROR"
	message := err.Error()

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, security.ErrProtectedUser), errors.Is(err, security.ErrBuiltinRole):
		code, label = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, security.ErrUnknownUser), errors.Is(err, engine.ErrUnknownFeature):
		code, label = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, security.ErrNotSupported), errors.Is(err, engine.ErrFeatureUnavailable):
		code, label = fiber.StatusNotImplemented, "NOT_SUPPORTED"
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request error", "path", c.Path(), "method", c.Method(), "status", code, "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: ErrorDetail{
		Code:    label,
		Message: message,
		Path:    c.Path(),
	}})
}

func (s *Server) notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: ErrorDetail{
		Code:    "NOT_FOUND",
		Message: "Route not found",
		Path:    c.Path(),
	}})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	BaseURI   string `json:"base_uri"`
	Members   int    `json:"members"`
	Cluster   bool   `json:"cluster"`
}

func (s *Server) health(c *fiber.Ctx) error {
	members := s.c.Members()
	status := "healthy"
	if len(members) == 0 {
		status = "uninitialized"
	}
	return c.JSON(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   engine.Version,
		BaseURI:   s.c.BaseURI(),
		Members:   len(members),
		Cluster:   s.c.IsCluster(),
	})
}
