// Package service is the HTTP analysis service the builder submits pipelines to.
package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/google/uuid"
	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
)

// DefaultOrigins are the dev-server origins the builder front end runs on
var DefaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
}

// Service serves GET / and POST /pipelines/parse
type Service struct {
	app      *fiber.App
	analyzer api.Analyzer
}

// New creates the service. Browsers from origins may call it cross-origin.
func New(analyzer api.Analyzer, origins []string) *Service {
	s := &Service{analyzer: analyzer}

	s.app = fiber.New(fiber.Config{
		AppName:      "pipeline-analyzer",
		ErrorHandler: errorHandler,
	})
	s.app.Use(requestLogger)
	// Credentials are only allowed with an explicit origin list
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: !allowAll,
	}))

	s.app.Get("/", s.handlePing)
	s.app.Post("/pipelines/parse", s.handleParse)

	return s
}

// App exposes the fiber app, mainly for app.Test
func (s *Service) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is done
func (s *Service) Listen(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logging.Error("analysis service shutdown failed", "error", err)
		}
	}()

	logging.Info("analysis service listening", "addr", addr, "analyzer", s.analyzer.Name())
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Service) handlePing(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"Ping": "Pong"})
}

func (s *Service) handleParse(c fiber.Ctx) error {
	var p model.Pipeline
	if err := c.Bind().JSON(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := s.analyzer.Analyze(c.Context(), &p)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	logging.DebugContext(c.Context(), "parsed pipeline",
		"numNodes", res.NumNodes, "numEdges", res.NumEdges, "isDAG", res.IsDAG)
	return c.JSON(res)
}

// errorHandler renders every failure as {"detail": "..."}
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}

func requestLogger(c fiber.Ctx) error {
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Set("X-Request-ID", requestID)
	ctx := logging.WithRequestID(context.Background(), requestID)

	start := time.Now()
	err := c.Next()

	// Errors are rendered after the chain returns, so derive the status from err
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	args := []any{
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"durationMs", time.Since(start).Milliseconds(),
	}
	if status >= 400 {
		logging.WarnContext(ctx, "request rejected", args...)
	} else {
		logging.InfoContext(ctx, "request completed", args...)
	}
	return err
}
