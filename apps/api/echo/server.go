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

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
)

// exposed export metadata headers
const (
	headerUpdatedCount     = "X-Updated-Count"
	headerNotFoundCount    = "X-Not-Found-Count"
	headerNotFoundStudents = "X-Not-Found-Students"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		CourseSvc    *course.Service
		StudentSvc   *student.Service
		GroupSvc     *group.Service
		GradeItemSvc *gradeitem.Service
		GradeSvc     *grade.Service
		Validate     *validator.Validate
		Translator   ut.Translator
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, headerUpdatedCount, headerNotFoundCount, headerNotFoundStudents},
	}))
	s.app.Use(middleware.BodyLimit(conf.Server.MaxUploadSize))

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	registerCourseAPI(api, s.CourseSvc, s.GradeSvc, s.Validate)
	registerStudentAPI(api, s.StudentSvc, s.Validate)
	registerGroupAPI(api, s.GroupSvc, s.GradeSvc, s.Validate)
	registerGradeItemAPI(api, s.GradeItemSvc, s.GradeSvc, s.Validate)
	registerGradeAPI(api, s.GradeSvc, s.Validate)
}

// Start listens on the configured address. Errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
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

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
