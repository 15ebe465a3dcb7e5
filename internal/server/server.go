// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/extraction"
	"github.com/spigell/skills-extractor/internal/resume"
)

// AllowHeaders is the header list browsers may send with a cross-origin call.
var AllowHeaders = []string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
	"x-supabase-client-platform",
	"x-supabase-client-platform-version",
	"x-supabase-client-runtime",
	"x-supabase-client-runtime-version",
}

var allowHeaders = strings.Join(AllowHeaders, ", ")

// Runner is the part of the pipeline the handlers call.
type Runner interface {
	Run(ctx context.Context, job resume.Job) (extraction.Result, error)
	JobStatus(ctx context.Context, resumeID string) (resume.Status, error)
}

// Readiness reports whether dependencies are reachable.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Config holds the HTTP settings.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	BodyLimit       int           `mapstructure:"body-limit"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

// Server owns the fiber app.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *zap.Logger
}

// New builds the app and registers every route.
func New(cfg Config, runner Runner, ready Readiness, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1 << 20
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               "skills-extractor",
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(crossOrigin)
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: allowHeaders,
	}))
	app.Use(requestLogger(log))

	h := &handlers{runner: runner, ready: ready, logger: log}
	register(app, h)

	return &Server{app: app, cfg: cfg, logger: log}
}

func register(app *fiber.App, h *handlers) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)

	app.Post("/extract-skills", h.ExtractSkills)
	app.Post("/functions/v1/extract-skills", h.ExtractSkills)
	app.Get("/resumes/:id/status", h.Status)

	// Preflights without Access-Control-Request-Method fall through cors.
	// crossOrigin has already set the headers.
	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// App exposes the fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return errorJSON(c, code, err.Error())
	}
}

// crossOrigin stamps the permissive CORS headers on every response. The cors
// middleware only answers requests that carry an Origin header.
func crossOrigin(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
	return c.Next()
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		log.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("elapsed", time.Since(started)),
		)
		return err
	}
}
