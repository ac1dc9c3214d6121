package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
	"github.com/academia-app/academia/core/user"
)

type (
	// Deps holds the services the API serves.
	Deps struct {
		Logger     core.Logger
		UserSvc    *user.Service
		GroupSvc   *group.Service
		StudentSvc *student.Service
		LessonSvc  *lesson.Service
		PaymentSvc *payment.Service
	}

	Server struct {
		addr     string
		app      *echo.Echo
		deps     *Deps
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(addr string, deps *Deps) *Server {
	s := &Server{
		addr:     addr,
		app:      echo.New(),
		deps:     deps,
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.Logger())
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc)
	registerGroupAPI(v1, jwt, s.deps.GroupSvc)
	registerStudentAPI(v1, jwt, s.deps.StudentSvc)
	registerLessonAPI(v1, jwt, s.deps.LessonSvc)
	registerPaymentAPI(v1, jwt, s.deps.PaymentSvc)
}

func (s *Server) Start() {
	s.errs <- s.app.Start(s.addr)
}

// Errors reports a failed listener.
func (s *Server) Errors() <-chan error { return s.errs }

// ShutdownSignal delivers OS interrupts and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia API!")
}
