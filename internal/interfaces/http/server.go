package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/service"
	"github.com/reelchat/reelchat/internal/interfaces/http/handlers"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

// Server HTTP服务器
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *zap.Logger
}

// Config HTTP服务器配置
type Config struct {
	Host string
	Port int
	Mode string // debug, release, test
}

// RequestRecorder receives one observation per served request (metrics).
type RequestRecorder interface {
	RecordHTTPRequest(route string, status int, duration time.Duration)
}

// Deps are the use cases and handlers the routes are wired to.
type Deps struct {
	ProcessMessage *usecase.ProcessMessageUseCase
	Conversations  *usecase.ConversationUseCase
	Probe          *usecase.ProbeUseCase
	Providers      handlers.ProviderLister // optional
	Metrics        RequestRecorder         // optional
	MetricsHandler http.Handler            // optional, mounted at /metrics
}

// NewServer 创建HTTP服务器
func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	// 设置Gin模式
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(traceMiddleware())
	router.Use(ginLogger(logger))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}

	setupRoutes(router, deps, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
		logger: logger,
	}
}

// Handler exposes the router (tests, embedding).
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start 启动服务器. Listen errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes 设置路由
func setupRoutes(router *gin.Engine, deps Deps, logger *zap.Logger) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(handlers.TimeFormat),
		})
	})

	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	api := router.Group("/api")
	{
		chat := handlers.NewChatHandler(deps.ProcessMessage, logger)
		api.POST("/chat", chat.SendMessage)
		api.GET("/chat", chat.GetMessages)

		conversations := handlers.NewConversationHandler(deps.Conversations, logger)
		api.GET("/conversations", conversations.List)
		api.POST("/conversations", conversations.Create)
		api.GET("/conversations/:id", conversations.Get)
		api.DELETE("/conversations/:id", conversations.Delete)

		if deps.Probe != nil {
			debug := handlers.NewDebugHandler(deps.Probe, deps.Providers, logger)
			api.GET("/debug/probe", debug.Probe)
			api.GET("/debug/providers", debug.Providers)
			api.POST("/debug/genres/refresh", debug.RefreshGenres)
		}
	}
}

// traceMiddleware reuses an incoming trace id or mints one, and echoes it.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = service.NewTraceID()
		}
		c.Request = c.Request.WithContext(service.WithTraceID(c.Request.Context(), traceID))
		c.Header(TraceHeader, traceID)
		c.Next()
	}
}

// metricsMiddleware labels requests by route template to bound cardinality.
func metricsMiddleware(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(route, c.Writer.Status(), time.Since(start))
	}
}

// ginLogger Gin日志中间件
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("trace_id", service.TraceIDFromContext(c.Request.Context())),
		)
	}
}
