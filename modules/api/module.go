package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/planner/domain/planner"
	"github.com/example/planner/modules/images"
	"github.com/example/planner/modules/records"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ImageStore is the part of the image module the HTTP layer needs.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (*images.ImageInfo, error)
	Get(ctx context.Context, id string) (*images.Image, bool)
	Delete(ctx context.Context, id string) error
	Resolve(ctx context.Context, ref planner.ImageRef) string
}

// Config configures the HTTP listener.
type Config struct {
	Host         string
	Port         int
	MaxImageSize int64
}

func (c Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Module is the driving adapter that exposes the planner over local HTTP.
// It reaches the record store through the PlannerPort.
type Module struct {
	cfg     Config
	app     *fiber.App
	planner records.PlannerPort
	images  ImageStore
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new API module. store may be nil, in which case the
// image endpoints answer 503 and entity images fall back to their remote URL.
func NewModule(cfg Config, store ImageStore, logger types.Logger) *Module {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	return &Module{
		cfg:    cfg,
		images: store,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"records"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "records":
		m.planner = records.NewPlannerAdapter(container)
	}
}

// Start builds the Fiber app and serves it in the background.
func (m *Module) Start(_ context.Context) error {
	if m.planner == nil {
		return fmt.Errorf("planner dependency not set")
	}

	m.app = m.newApp()

	addr := m.cfg.addr()
	go func() {
		if err := m.app.Listen(addr); err != nil {
			m.logger.Error("HTTP server error", "addr", addr, "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":   m.cfg.addr(),
			"images": m.images != nil,
		},
	}
}

// newApp creates the Fiber app with middleware and routes.
func (m *Module) newApp() *fiber.App {
	cfg := fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	}
	// Leave room for multipart framing around the largest accepted image.
	if m.cfg.MaxImageSize > 0 {
		cfg.BodyLimit = int(m.cfg.MaxImageSize) + 64*1024
	}

	app := fiber.New(cfg)
	app.Use(recover.New())
	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
