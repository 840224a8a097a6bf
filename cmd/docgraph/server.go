package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/api/handlers"
	"github.com/BaSui01/docgraph/config"
	"github.com/BaSui01/docgraph/internal/metrics"
	"github.com/BaSui01/docgraph/internal/server"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 是 docgraph 的 HTTP 服务
type Server struct {
	cfg    *config.Config
	app    *App
	logger *zap.Logger

	httpManager *server.Manager
	collector   *metrics.Collector

	healthHandler   *handlers.HealthHandler
	documentHandler *handlers.DocumentHandler
	queryHandler    *handlers.QueryHandler
	memoryHandler   *handlers.MemoryHandler

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, app *App, collector *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		app:       app,
		collector: collector,
		logger:    logger,
	}
	s.initHandlers()
	return s
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(Version, s.logger)
	for _, check := range s.app.HealthChecks() {
		s.healthHandler.RegisterCheck(check)
	}
	s.documentHandler = handlers.NewDocumentHandler(s.app.Ingestor, s.app.Registry, s.logger)
	s.queryHandler = handlers.NewQueryHandler(s.app.Queries, s.app.Coordinator, s.logger)
	s.memoryHandler = handlers.NewMemoryHandler(s.app.Store, s.logger)
}

// Routes 构建完整的路由与中间件链
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(BuildTime, GitCommit))
	mux.Handle("GET /metrics", promhttp.Handler())

	// 文档与图
	mux.HandleFunc("POST /api/process", s.documentHandler.HandleProcess)
	mux.HandleFunc("GET /api/graph/{documentId}", s.documentHandler.HandleGetGraph)
	mux.HandleFunc("GET /api/graph/{documentId}/expand", s.documentHandler.HandleExpand)
	mux.HandleFunc("GET /api/graph/{documentId}/summary", s.memoryHandler.HandleDocumentSummary)

	// 检索与问答
	mux.HandleFunc("POST /api/query", s.queryHandler.HandleQuery)
	mux.HandleFunc("POST /api/retrieve", s.queryHandler.HandleRetrieve)

	// 用户记忆
	mux.HandleFunc("POST /api/memories", s.memoryHandler.HandleUpsert)
	mux.HandleFunc("GET /api/profile", s.memoryHandler.HandleProfile)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/version", "/metrics"}

	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	s.rateLimiterCancel = cancel

	sc := s.cfg.Server
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares,
		CORS(sc.CORSAllowedOrigins),
		MaxBody(sc.MaxBodyBytes),
		JWTAuth(sc.JWT, skipAuthPaths, s.logger),
		APIKeyAuth(sc.APIKeys, skipAuthPaths),
		RateLimiter(rateLimiterCtx, sc.RateLimitRPS, sc.RateLimitBurst),
	)
	return Chain(mux, middlewares...)
}

// Start 启动 HTTP 服务
func (s *Server) Start() error {
	s.httpManager = server.NewManager(s.Routes(), server.ConfigFrom(s.cfg.Server), s.logger)
	s.httpManager.OnShutdown(s.app.Close)
	s.httpManager.OnShutdown(func(context.Context) error {
		if s.rateLimiterCancel != nil {
			s.rateLimiterCancel()
		}
		return nil
	})

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started",
		zap.String("addr", s.httpManager.Addr()),
		zap.String("auth", describeAuth(s.cfg.Server)),
		zap.Strings("checks", s.healthHandler.CheckNames()),
	)
	return nil
}

// OnShutdown 注册额外的关闭钩子（如遥测 flush），需在 Start 之后调用
func (s *Server) OnShutdown(hook func(context.Context) error) {
	if s.httpManager != nil {
		s.httpManager.OnShutdown(hook)
	}
}

// WaitForShutdown 阻塞直到收到信号或 ctx 取消，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) error {
	return s.httpManager.WaitForShutdown(ctx)
}

// Shutdown 立即优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpManager == nil {
		return s.app.Close(ctx)
	}
	return s.httpManager.Shutdown(ctx)
}
