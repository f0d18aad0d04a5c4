package server

import (
	"net/http"

	"github.com/conduitchat/conduit/internal/agent"
	"github.com/conduitchat/conduit/internal/completion"
	"github.com/conduitchat/conduit/internal/config"
	"github.com/conduitchat/conduit/internal/embedding"
	apierrors "github.com/conduitchat/conduit/internal/errors"
	"github.com/conduitchat/conduit/internal/knowledge"
	"github.com/conduitchat/conduit/internal/logging"
	"github.com/conduitchat/conduit/internal/middleware"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/conduitchat/conduit/internal/stream"
	"github.com/conduitchat/conduit/internal/tools"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Deps carries the service dependencies the API server routes requests to.
// Store and Limiter may be nil; the corresponding features degrade rather
// than fail (no augmentation, no rate limiting).
type Deps struct {
	Completion *completion.Client
	OpenAI     *openai.Client
	Store      knowledge.VectorStore
	Embedder   embedding.Embedder
	Registry   *tools.Registry
	Limiter    *middleware.RateLimiter
}

// APIServer represents the main API server
type APIServer struct {
	config     *config.Config
	router     *gin.Engine
	completion *completion.Client
	openai     *openai.Client
	store      knowledge.VectorStore
	augmenter  *knowledge.Augmenter
	registry   *tools.Registry
	streamer   *stream.Streamer
	log        zerolog.Logger

	newAgent func(toolset []tools.Tool) agentRunner
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, deps Deps) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	log := logging.NewLogger("server")

	srv := &APIServer{
		config:     cfg,
		router:     router,
		completion: deps.Completion,
		openai:     deps.OpenAI,
		store:      deps.Store,
		registry:   deps.Registry,
		streamer:   stream.New("chat"),
		log:        log,
	}

	if deps.Store != nil && deps.Embedder != nil {
		srv.augmenter = knowledge.NewAugmenter(deps.Store, deps.Embedder, logging.NewLogger("knowledge"))
	}

	srv.newAgent = func(toolset []tools.Tool) agentRunner {
		return agent.New(deps.OpenAI, &cfg.Agent, toolset, logging.NewLogger("agent"))
	}

	srv.setupRoutes(deps.Limiter)
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes(limiter *middleware.RateLimiter) {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	if limiter != nil && s.config.RateLimit.Enabled {
		v1.Use(limiter.RateLimit())
	}
	{
		v1.POST("/chat", s.handleChat)
	}
}

// healthCheck reports service liveness and knowledge store reachability
func (s *APIServer) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": s.config.Server.Name,
	}

	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			resp["status"] = "degraded"
			resp["knowledge_store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["knowledge_store"] = s.store.Driver()
	}

	c.JSON(http.StatusOK, resp)
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	resp := apierrors.NewErrorResponse(err, middleware.GetRequestID(c), c.Request.URL.Path, c.Request.Method)
	c.JSON(err.HTTPStatus, resp)
}
