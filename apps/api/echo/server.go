package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

type (
	Deps struct {
		Conf         *core.Config
		Logger       core.Logger
		UserSvc      user.Service
		ClassroomSvc classroom.Service
		Sessions     *SessionStore

		// MediaRoot, when set, is served under /media.
		MediaRoot      string
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan<- os.Signal
		deps     *Deps
		app      *echo.Echo

		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan<- os.Signal, deps *Deps) Server {
	conf := deps.Conf
	jwtSigningKey = conf.SecretKey
	jwtExpirationDelta = conf.Server.JWTExpirationDelta
	jwtRefreshDelta = conf.Server.JWTRefreshExpirationDelta
	appName = conf.AppName

	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore(conf.Server.SessionCookieDelta, !conf.Debug)
	}

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	classroom.RegisterValidators(validate, translator)

	s := &server{
		addr:       addr,
		shutdown:   shutdown,
		deps:       deps,
		app:        echo.New(),
		validate:   validate,
		translator: translator,
	}
	s.setup()
	return s
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	api := s.app.Group("/api")
	auth := authMiddleware()

	registerUserAPI(api, auth, s)
	registerDashboardAPI(api, auth, s)
	registerClassroomAPI(api, auth, s)

	// server-rendered dashboard pages are bounced to "/" unless a valid
	// session cookie is present
	pages := s.app.Group("/dashboard", guardMiddleware())
	pages.GET("", dashboardPage)
	pages.GET("/*", dashboardPage)

	if s.deps.MediaRoot != "" {
		s.app.Static("/media", s.deps.MediaRoot)
	}
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}

// dashboardPage confirms the guard let the request through; the actual page
// is rendered client-side off /api/dashboard.
func dashboardPage(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"userName": claims.UserName})
}
