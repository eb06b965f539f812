package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/MailPulse/internal/app/service"
	inthttp "github.com/sifan077/MailPulse/internal/http/handler"
	"github.com/sifan077/MailPulse/internal/http/middleware"
	"github.com/sifan077/MailPulse/internal/http/util"
	"go.uber.org/zap"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	bodyLimit    = 1 << 20
)

// Dependencies bundles everything the HTTP server routes to.
type Dependencies struct {
	Logger *zap.Logger
	Redis  *redis.Client

	// Tokens verifies dashboard bearer tokens. Nil runs the API in single-tenant mode.
	Tokens    *util.IdentityTokens
	RateLimit middleware.RateLimitConfig

	Recorder   service.EventRecorder
	Queries    service.TrackingQueryService
	Dispatcher service.EmailDispatcher
	Admin      service.AdminService
	Activity   inthttp.ActivityReader
	Checks     map[string]inthttp.Check

	Location           *time.Location
	PublicBaseURL      string
	DefaultRedirectURL string

	// TrustedProxies enables X-Forwarded-For for c.IP() when the peer matches.
	TrustedProxies []string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RateLimit.MaxRequests <= 0 || deps.RateLimit.Window <= 0 {
		deps.RateLimit = middleware.DefaultRateLimitConfig()
	}

	fiberCfg := fiber.Config{
		AppName:      "mailpulse",
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler(deps.Logger),
	}
	if len(deps.TrustedProxies) > 0 {
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = deps.TrustedProxies
		fiberCfg.EnableIPValidation = true
	}

	app := fiber.New(fiberCfg)

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.Metrics())

	inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger: s.deps.Logger,
		Checks: s.deps.Checks,
	}).Register(s.app)

	// Pixel and click endpoints are hit by mail clients and stay unthrottled.
	inthttp.NewTrackingHandler(inthttp.TrackingDeps{
		Logger:             s.deps.Logger,
		Recorder:           s.deps.Recorder,
		DefaultRedirectURL: s.deps.DefaultRedirectURL,
	}).Register(s.app)

	apiMiddleware := []fiber.Handler{}
	if s.deps.Redis != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger))
	}
	apiMiddleware = append(apiMiddleware, middleware.Authenticate(s.deps.Tokens, s.deps.Logger))

	api := s.app.Group("/api", apiMiddleware...)
	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:        s.deps.Logger,
		Queries:       s.deps.Queries,
		Dispatcher:    s.deps.Dispatcher,
		Admin:         s.deps.Admin,
		Activity:      s.deps.Activity,
		PublicBaseURL: s.deps.PublicBaseURL,
		Location:      s.deps.Location,
	}).Register(api)
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled request error",
				zap.String("request_id", middleware.RequestIDFrom(c)),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}
