package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/repository"
	"github.com/reelchat/reelchat/internal/domain/service"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
	"github.com/reelchat/reelchat/internal/infrastructure/config"
	"github.com/reelchat/reelchat/internal/infrastructure/llm"
	_ "github.com/reelchat/reelchat/internal/infrastructure/llm/openai" // register openai provider factory
	"github.com/reelchat/reelchat/internal/infrastructure/monitoring"
	"github.com/reelchat/reelchat/internal/infrastructure/persistence"
	"github.com/reelchat/reelchat/internal/infrastructure/prompt"
	"github.com/reelchat/reelchat/internal/infrastructure/tmdb"
	toolpkg "github.com/reelchat/reelchat/internal/infrastructure/tool"
	httpServer "github.com/reelchat/reelchat/internal/interfaces/http"
	"github.com/reelchat/reelchat/pkg/safego"
)

// genreWarmupTimeout bounds the startup genre fetch.
const genreWarmupTimeout = 15 * time.Second

// App 应用程序
type App struct {
	// 配置
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// 仓储层
	conversationRepo repository.ConversationRepository

	// 基础设施
	metrics      *monitoring.Metrics
	catalog      *tmdb.Client
	toolRegistry domaintool.Registry
	toolExecutor *toolpkg.Executor
	llmRouter    *llm.Router
	promptEngine *prompt.Engine
	agentLoop    *service.AgentLoop

	// 应用服务
	processMessageUseCase *usecase.ProcessMessageUseCase
	conversationUseCase   *usecase.ConversationUseCase
	probeUseCase          *usecase.ProbeUseCase

	// 接口层
	httpServer *httpServer.Server

	cancel context.CancelFunc
}

// NewApp 创建应用程序（依赖注入容器）
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := newCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := app.initInterfaces(); err != nil {
		app.closeDB()
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}
	return app, nil
}

// NewAppCLI creates a lightweight app for one-shot commands.
// Everything except the HTTP server is initialized.
func NewAppCLI(cfg *config.Config, logger *zap.Logger) (*App, error) {
	return newCore(cfg, logger)
}

func newCore(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
	}

	// 初始化各层组件
	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		app.closeDB()
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	app.initApplicationServices()
	return app, nil
}

// initRepositories 初始化仓储层
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories", zap.String("type", app.config.Database.Type))

	if app.config.Database.Type == "memory" {
		app.conversationRepo = persistence.NewMemoryConversationRepository()
		return nil
	}

	// SQL logging follows the debug log level
	dbCfg := app.config.Database
	if app.config.Log.Level == "debug" {
		dbCfg.LogSQL = true
	}

	// 连接数据库
	db, err := persistence.NewDBConnection(&dbCfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db
	app.conversationRepo = persistence.NewGormConversationRepository(db)
	return nil
}

// initInfrastructure 初始化基础设施
func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")

	// Movie catalog
	tc := app.config.TMDB
	if tc.AccessToken == "" {
		app.logger.Warn("TMDB access token is empty, catalog lookups will fail")
	}
	app.catalog = tmdb.New(tmdb.Config{
		BaseURL:       tc.BaseURL,
		AccessToken:   tc.AccessToken,
		Language:      tc.Language,
		Timeout:       tc.Timeout,
		GenreCacheTTL: tc.GenreCacheTTL,
	}, app.logger, tmdb.WithFailureRecorder(app.metrics))

	// Tool Registry + Executor
	registry := domaintool.NewInMemoryRegistry()
	registered := toolpkg.RegisterMovieTools(registry, app.catalog, app.logger)
	app.logger.Info("Tools registered", zap.Int("count", registered))
	app.toolRegistry = registry
	app.toolExecutor = toolpkg.NewExecutor(registry, app.metrics, app.logger)

	// LLM Router
	app.llmRouter = llm.NewRouter(llm.RouterConfig{
		BreakerThreshold: app.config.LLM.BreakerThreshold,
		BreakerCooldown:  app.config.LLM.BreakerCooldown,
	}, app.metrics, app.logger)

	for _, pc := range app.config.LLM.Providers {
		provider, err := llm.CreateProvider(llm.ProviderConfig{
			Name:     pc.Name,
			Type:     pc.Type,
			BaseURL:  pc.BaseURL,
			APIKey:   pc.APIKey,
			Models:   pc.Models,
			Priority: pc.Priority,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		if !provider.IsAvailable(context.Background()) {
			app.logger.Warn("LLM provider has no credentials", zap.String("provider", pc.Name))
		}
		app.llmRouter.AddProvider(provider, pc.Priority)
	}

	// Prompt 引擎
	app.promptEngine = prompt.NewEngine(app.config.Agent.InstructionsFile, app.logger)

	// Agent Loop
	ac := app.config.Agent
	loopCfg := service.DefaultAgentLoopConfig()
	if ac.Model != "" {
		loopCfg.Model = ac.Model
	}
	loopCfg.Temperature = ac.Temperature
	loopCfg.MaxTokens = ac.MaxTokens
	if ac.MaxSteps > 0 {
		loopCfg.MaxSteps = ac.MaxSteps
	}
	if ac.Timeout > 0 {
		loopCfg.Timeout = ac.Timeout
	}
	if ac.ToolTimeout > 0 {
		loopCfg.ToolTimeout = ac.ToolTimeout
	}
	app.agentLoop = service.NewAgentLoop(app.llmRouter, app.toolExecutor, app.promptEngine, loopCfg, app.logger)

	return nil
}

// initApplicationServices 初始化应用服务
func (app *App) initApplicationServices() {
	app.processMessageUseCase = usecase.NewProcessMessageUseCase(
		app.conversationRepo,
		app.agentLoop,
		app.metrics,
		usecase.ProcessMessageConfig{
			SingleConversation: app.config.SingleConversation(),
			HistoryLimit:       app.config.Agent.HistoryLimit,
			FallbackReply:      app.config.Chat.FallbackReply,
		},
		app.logger,
	)
	app.conversationUseCase = usecase.NewConversationUseCase(app.conversationRepo, app.logger)
	app.probeUseCase = usecase.NewProbeUseCase(app.agentLoop, app.catalog, app.logger)
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() error {
	sc := app.config.Server
	app.httpServer = httpServer.NewServer(httpServer.Config{
		Host: sc.Host,
		Port: sc.Port,
		Mode: sc.Mode,
	}, httpServer.Deps{
		ProcessMessage: app.processMessageUseCase,
		Conversations:  app.conversationUseCase,
		Probe:          app.probeUseCase,
		Providers:      app.llmRouter,
		Metrics:        app.metrics,
		MetricsHandler: app.metrics.Handler(),
	}, app.logger)
	return nil
}

// Start 启动应用程序: background work plus the HTTP server when present.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	bgCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	if err := app.promptEngine.StartWatching(bgCtx); err != nil {
		app.logger.Warn("Instructions hot reload disabled", zap.Error(err))
	}

	safego.GoContext(bgCtx, app.logger, "genre-warmup", func(ctx context.Context) {
		warmCtx, done := context.WithTimeout(ctx, genreWarmupTimeout)
		defer done()
		app.warmGenres(warmCtx)
	})

	// 启动HTTP服务器
	if app.httpServer != nil {
		if err := app.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop 停止应用程序
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	if app.cancel != nil {
		app.cancel()
	}

	// 停止HTTP服务器
	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	app.closeDB()

	app.logger.Info("Application stopped successfully")
	return nil
}

// warmGenres preloads the genre cache so the first lookup maps genre names.
func (app *App) warmGenres(ctx context.Context) {
	genres, err := app.catalog.ListGenres(ctx)
	if err != nil {
		app.logger.Warn("Genre warm-up failed", zap.Error(err))
		return
	}
	app.logger.Info("Genre cache warmed", zap.Int("count", len(genres.Genres)))
}

// 关闭数据库连接
func (app *App) closeDB() {
	if app.db == nil {
		return
	}
	if err := persistence.Close(app.db); err != nil {
		app.logger.Error("Failed to close database connection", zap.Error(err))
	}
	app.db = nil
}

// ProcessMessageUseCase returns the chat orchestrator (used by the CLI)
func (app *App) ProcessMessageUseCase() *usecase.ProcessMessageUseCase {
	return app.processMessageUseCase
}

// ConversationUseCase returns the conversation management use-case.
func (app *App) ConversationUseCase() *usecase.ConversationUseCase {
	return app.conversationUseCase
}

// ProbeUseCase returns the diagnostics use-case.
func (app *App) ProbeUseCase() *usecase.ProbeUseCase {
	return app.probeUseCase
}

// ToolRegistry returns the agent's tool registry.
func (app *App) ToolRegistry() domaintool.Registry {
	return app.toolRegistry
}

// Logger returns the application logger
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig returns the application config
func (app *App) AppConfig() *config.Config {
	return app.config
}

// Addr returns the HTTP listen address, or "" without a server.
func (app *App) Addr() string {
	if app.httpServer == nil {
		return ""
	}
	return app.httpServer.Addr()
}
