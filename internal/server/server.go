package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"relaypace/internal/estimate"
	"relaypace/internal/metrics"
	"relaypace/internal/models"
	"relaypace/internal/storage/sqlite"
	"relaypace/internal/timeutil"
)

// Options holds what the server needs beyond the store.
type Options struct {
	// Seed is the roster and loop set new teams start with.
	Seed models.TeamSeed
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	// Metrics may be nil, in which case /metrics is not served.
	Metrics *metrics.Manager
}

// Server provides HTTP handlers for the relay pacing backend.
type Server struct {
	engine  *gin.Engine
	store   *sqlite.Store
	logger  *slog.Logger
	metrics *metrics.Manager
	seed    models.TeamSeed
	cors    *cors.Cors
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(requestMetrics(opts.Metrics))

	srv := &Server{
		engine:  router,
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
		seed:    opts.Seed,
		cors: cors.New(cors.Options{
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
				http.MethodPatch,
			},
			AllowedOrigins: origins,
			AllowedHeaders: []string{"*"},
		}),
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler is the engine wrapped with CORS handling, ready for http.Server.
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(s.engine)
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/teams", s.handleListTeams)
		api.PATCH("/team", s.handleCreateTeam)

		team := api.Group("/team/:name")
		{
			team.GET("", s.handleGetTeam)
			team.POST("", s.handleUpdateTeam)
			team.GET("/finish-times", s.handleGetFinishTimes)
			team.POST("/finish-times", s.handleReplaceFinishTimes)
			team.GET("/estimates", s.handleEstimates)
		}
	}

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// handleHealth reports ready once the database answers.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps gateway and domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrInvalid),
		errors.Is(err, sqlite.ErrForeignID),
		errors.Is(err, timeutil.ErrInvalidPace),
		errors.Is(err, timeutil.ErrInvalidTimeOfDay),
		errors.Is(err, estimate.ErrEmptyRoster),
		errors.Is(err, estimate.ErrNoLoops),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	attrs := []any{
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", attrs...)
	} else {
		s.logger.WarnContext(c.Request.Context(), "request refused", attrs...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload as JSON, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// respondText writes a plain text body.
func respondText(c *gin.Context, status int, body string) {
	c.String(status, body)
}

func statusLabel(code int) string {
	return strconv.Itoa(code)
}
