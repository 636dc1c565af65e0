package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"nara.lk/portal/internal/jobs"
	"nara.lk/portal/internal/localization"
	"nara.lk/portal/internal/translation"
)

const defaultBodyLimit = "4M"

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// AllowOrigins defaults to "*".
	AllowOrigins []string
	BodyLimit    string
}

// Translator runs synchronous translations and exposes the shared cache.
type Translator interface {
	Translate(ctx context.Context, req translation.Request, onProgress translation.ProgressFunc) (*translation.Result, error)
	Cache() translation.Cache
}

// JobTracker runs asynchronous document translations.
type JobTracker interface {
	Submit(req translation.Request) (jobs.Job, error)
	Get(id string) (jobs.Job, error)
	Cancel(id string) (jobs.Job, error)
	List() []jobs.Job
}

// ProviderCatalog describes the registered providers.
type ProviderCatalog interface {
	Describe() []translation.ProviderInfo
}

// RecordLocalizer serves and translates stored content records.
type RecordLocalizer interface {
	LocalizeByUUID(ctx context.Context, recordUUID, lang string) (localization.LocalizedRecord, error)
	TranslateRecordByUUID(ctx context.Context, recordUUID string, opts localization.RunOptions) (localization.RunStats, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the server. Records and Database are optional; record routes are only
// mounted when Records is set.
type Deps struct {
	Translator Translator
	Jobs       JobTracker
	Providers  ProviderCatalog
	Records    RecordLocalizer
	Database   Pinger
}

type Server struct {
	deps      Deps
	logger    zerolog.Logger
	opts      Options
	validator *requestValidator
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) (*Server, error) {
	if deps.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if deps.Jobs == nil {
		return nil, fmt.Errorf("job tracker is required")
	}
	if deps.Providers == nil {
		return nil, fmt.Errorf("provider catalog is required")
	}

	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	bodyLimit := strings.TrimSpace(opts.BodyLimit)
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	return &Server{
		deps:      deps,
		logger:    logger,
		validator: newRequestValidator(),
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowOrigins:    origins,
			BodyLimit:       bodyLimit,
		},
	}, nil
}

// Handler builds the Echo router.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler
	e.Validator = s.validator

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(s.opts.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.GET("/providers", s.handleProviders)
	api.POST("/translate", s.handleTranslate)
	api.POST("/translate/document", s.handleTranslateDocument)
	api.POST("/quality", s.handleQuality)
	api.GET("/jobs", s.handleListJobs)
	api.POST("/jobs", s.handleSubmitJob)
	api.GET("/jobs/:job_id", s.handleGetJob)
	api.DELETE("/jobs/:job_id", s.handleCancelJob)
	api.DELETE("/cache", s.handleClearCache)

	if s.deps.Records != nil {
		api.GET("/records/:record_uuid", s.handleGetRecord)
		api.POST("/records/:record_uuid/translate", s.handleTranslateRecord)
	}

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Bool("records", s.deps.Records != nil).Msg("portal api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("portal api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = serverError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
