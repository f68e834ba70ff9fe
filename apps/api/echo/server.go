package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		SchoolSvc  *school.Service
		GradingSvc *grading.Service
		AuditSvc   *audit.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.auth, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps)
	registerSchoolAPI(v1, jwt, s.auth, s.deps)
	registerGradingAPI(v1, jwt, s.auth, s.deps)
	registerAuditAPI(v1, jwt, s.auth, s.deps)
}

// Start blocks until the server stops. Failures are reported through Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
