package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appledger "github.com/schoolfund/backend/internal/application/ledger"
	apploan "github.com/schoolfund/backend/internal/application/loan"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/infrastructure/auth"
	"github.com/schoolfund/backend/internal/infrastructure/cache"
	"github.com/schoolfund/backend/internal/infrastructure/config"
	"github.com/schoolfund/backend/internal/infrastructure/event"
	"github.com/schoolfund/backend/internal/infrastructure/logger"
	"github.com/schoolfund/backend/internal/infrastructure/persistence"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
	"github.com/schoolfund/backend/internal/interfaces/http/handler"
	"github.com/schoolfund/backend/internal/interfaces/http/middleware"
	"github.com/schoolfund/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/schoolfund/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const version = "1.0.0"

//	@title			School Fund API
//	@version		1.0
//	@description	Fund ledger, vault custody, employee loans and savings deposit verification

//	@contact.name	Finance Office
//	@contact.url	https://github.com/schoolfund/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token issued by the school identity provider. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel := setupTelemetry(ctx, cfg, baseLog)
	log := tel.logger
	defer func() { _ = log.Sync() }()

	log.Info("Starting fund backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	sqlLog := logger.NewSQLLogger(log, logger.SQLLogConfig{
		Level:         logger.SQLLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithGormLogger(sqlLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	dbInst, err := telemetry.NewDBInstrumentation(tel.pipeline.Meter("schoolfund/db"), telemetry.DBConfig{
		TracingEnabled:     cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		MetricsEnabled:     cfg.Telemetry.MetricsEnabled && cfg.Telemetry.DBMetricsEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		PoolStatsInterval:  telemetry.DefaultDBConfig().PoolStatsInterval,
		DBSystem:           "postgresql",
	}, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := dbInst.Register(db.DB); err != nil {
		log.Fatal("Failed to register database instrumentation", zap.Error(err))
	}
	dbInst.StartPoolStatsCollection(ctx)
	defer dbInst.Stop()

	// Repositories and services
	scope := persistence.NewGormTransactionScope(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	vaultRepo := persistence.NewGormVaultRepository(db.DB)
	vaultTxRepo := persistence.NewGormVaultTransactionRepository(db.DB)
	loanRepo := persistence.NewGormLoanRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	entryRepo := persistence.NewGormDepositEntryRepository(db.DB)
	batchRepo := persistence.NewGormDepositBatchRepository(db.DB)

	feePolicy, err := loan.NewAdminFeePolicy(cfg.Loan.AdminFeeRate.String())
	if err != nil {
		log.Fatal("Invalid loan admin fee rate", zap.Error(err))
	}

	accountService := appledger.NewAccountService(accountRepo, categoryRepo, scope.Ledger())
	transactionService := appledger.NewTransactionService(txRepo, scope.Ledger(), appledger.Policy{
		RequireApproval:     cfg.Ledger.RequireApproval,
		AllowApprovedDelete: cfg.Ledger.AllowApprovedDelete,
		DefaultListLimit:    cfg.Ledger.DefaultListLimit,
		MaxListLimit:        cfg.Ledger.MaxListLimit,
	})
	reportService := appledger.NewReportService(accountRepo, txRepo)
	custodyService := appvault.NewCustodyService(vaultRepo, vaultTxRepo, scope.Vault())
	loanService := apploan.NewLoanService(loanRepo, installmentRepo, persistence.NewGormDirectory(db.DB), scope.Loan(), feePolicy)
	savingsService := appsavings.NewSavingsService(entryRepo, batchRepo, scope.Savings())

	// Idempotency claims back both the HTTP Idempotency-Key middleware and
	// event handler dedupe.
	claims, err := cache.OpenIdempotencyStore(ctx, cfg.Redis, cfg.Idempotency.RequireRedis, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := claims.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.Once(event.NewAuditTrailHandler(event.NewFundCodec(), log), claims, log,
		event.OnceOptions{Namespace: "audit:", TTL: cfg.Idempotency.TTL})
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)

	if cfg.Telemetry.MetricsEnabled {
		fundMetrics, err := telemetry.NewFundMetrics(telemetry.FundMetricsConfig{
			Meter:    tel.pipeline.Meter("schoolfund/fund"),
			Logger:   log,
			Balances: custodyService,
		})
		if err != nil {
			log.Fatal("Failed to create fund metrics", zap.Error(err))
		}
		fundMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.BalanceSampleInterval)
		defer fundMetrics.Stop()

		metricsHandler := event.NewFundMetricsHandler(fundMetrics)
		eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	custodyService.SetEventPublisher(eventBus)
	loanService.SetEventPublisher(eventBus)
	savingsService.SetEventPublisher(eventBus)

	// HTTP engine
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.MetricsEnabled {
		httpMetrics, err := middleware.HTTPMetrics(tel.pipeline.Meter("schoolfund/http"))
		if err != nil {
			log.Fatal("Failed to create HTTP metrics", zap.Error(err))
		}
		engine.Use(httpMetrics)
	}
	if tel.profiler.IsEnabled() {
		engine.Use(middleware.ProfilingWithConfig(middleware.DefaultProfilingConfig()))
	}

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.Run(ctx)
		engine.Use(middleware.RateLimit(limiter))
	}

	validator := auth.NewTokenValidator(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(validator)
	jwtCfg.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)

	checks := map[string]handler.HealthChecker{
		"database": handler.HealthCheckerFunc(db.Ping),
	}
	if redisStore, ok := claims.(*cache.RedisIdempotencyStore); ok {
		checks["redis"] = redisStore
	}
	health := handler.NewHealthHandler(cfg.App.Name, version, checks)
	engine.GET("/health", health.Health)
	engine.GET("/api/v1/health", health.Health)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	var moneyMove gin.HandlerFunc
	if cfg.Idempotency.Enabled {
		moneyMove = middleware.Idempotency(middleware.IdempotencyConfig{
			Claims:        claims,
			Responses:     cache.ResponseStoreFor(claims),
			TTL:           cfg.Idempotency.TTL,
			MaxCachedBody: cfg.Idempotency.MaxCachedBody,
			Logger:        log,
		})
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtAuth, middleware.AnnotateSpan())
	router.RegisterFund(r, router.FundHandlers{
		Ledger:  handler.NewLedgerHandler(accountService, transactionService, reportService),
		Vault:   handler.NewVaultHandler(custodyService),
		Loan:    handler.NewLoanHandler(loanService),
		Savings: handler.NewSavingsHandler(savingsService),
	}, moneyMove)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	tel.shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// telemetryStack owns the OTLP pipeline and the profiler for the process.
type telemetryStack struct {
	logger   *zap.Logger
	pipeline *telemetry.Pipeline
	profiler *telemetry.Profiler
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryStack {
	tc := cfg.Telemetry
	pipeline, err := telemetry.StartPipeline(ctx, telemetry.Settings{
		ServiceName:    tc.ServiceName,
		Endpoint:       tc.CollectorEndpoint,
		Insecure:       tc.Insecure,
		Traces:         tc.Enabled,
		SamplingRatio:  tc.SamplingRatio,
		Metrics:        tc.MetricsEnabled,
		ExportInterval: tc.MetricsExportInterval,
		Logs:           tc.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to start telemetry pipeline", zap.Error(err))
	}
	t := &telemetryStack{
		pipeline: pipeline,
		logger:   pipeline.TeeLogger(log, zapcore.InfoLevel),
	}

	t.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.ProfilingEnabled,
		ServerAddress:     tc.ProfilingServer,
		ApplicationName:   tc.ServiceName,
		BasicAuthUser:     tc.ProfilingBasicUser,
		BasicAuthPassword: tc.ProfilingBasicSecret,
		ProfileCPU:        true,
		ProfileAlloc:      true,
		ProfileInuse:      true,
		ProfileGoroutines: true,
	}, t.logger)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if t.profiler.IsEnabled() {
		pipeline.EnableSpanProfiles()
	}
	return t
}

func (t *telemetryStack) shutdown(ctx context.Context) {
	if err := t.profiler.Stop(); err != nil {
		t.logger.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := t.pipeline.Shutdown(ctx); err != nil {
		t.logger.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
}
