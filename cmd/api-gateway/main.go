package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/handler"
	"github.com/noah-isme/diploma-portal/internal/middleware"
	"github.com/noah-isme/diploma-portal/internal/repository"
	"github.com/noah-isme/diploma-portal/internal/service"
	"github.com/noah-isme/diploma-portal/pkg/cache"
	"github.com/noah-isme/diploma-portal/pkg/config"
	"github.com/noah-isme/diploma-portal/pkg/database"
	"github.com/noah-isme/diploma-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/diploma-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/diploma-portal/pkg/middleware/requestid"
	"github.com/noah-isme/diploma-portal/pkg/storage"
)

// @title Diploma Portal API
// @version 1.0.0
// @description Gateway in front of the diploma authority: issuance, listing, revocation and verification of diplomas.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := buildApp(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}
	defer cleanup()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.ClientInfo())
	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "authority", cfg.Authority.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// application holds the wired services and handlers.
type application struct {
	metrics  *service.MetricsService
	sessions *service.SessionService

	auth         *handler.AuthHandler
	diplomas     *handler.DiplomaHandler
	issuance     *handler.IssuanceHandler
	export       *handler.ExportHandler
	share        *handler.ShareHandler
	verification *handler.VerificationHandler
	audit        *handler.AuditHandler
	ops          *handler.MetricsHandler
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var metrics *service.MetricsService
	opts := []authority.Option{authority.WithLogger(logr)}
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
		opts = append(opts, authority.WithObserver(metrics))
	}
	client := authority.NewClient(cfg.Authority, opts...)

	sessions, err := buildSessions(ctx, cfg, logr, &closers)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var audit *service.AuditService
	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect audit database: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		audit = service.NewAuditService(repository.NewAuditRepository(db), metrics, logr, service.AuditConfig{
			Workers: cfg.Audit.Workers,
			Retries: cfg.Audit.Retries,
		})
		audit.Start(ctx)
		closers = append(closers, audit.Stop)
	}

	reports, err := storage.NewLocalStorage(cfg.Bulk.ReportsDir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("prepare report storage: %w", err)
	}

	validate := validator.New()
	diplomaSvc := service.NewDiplomaService(client, audit, logr)
	verifySvc := service.NewVerificationService(client, cfg.Authority.VerificationMode, metrics, logr)
	exportSvc := service.NewExportService(diplomaSvc, reports,
		storage.NewSignedURLSigner(cfg.Bulk.ReportsSecret, cfg.Bulk.ReportsTTL), audit, logr,
		service.ExportConfig{
			PublicBaseURL:   cfg.Share.PublicBaseURL,
			APIPrefix:       cfg.APIPrefix,
			ReportTTL:       cfg.Bulk.ReportsTTL,
			CleanupInterval: cfg.Bulk.CleanupInterval,
		})
	exportSvc.StartCleanup(ctx)

	issuanceSvc := service.NewIssuanceService(client, validate, logr, service.IssuanceOptions{
		Strategy: cfg.Bulk.Strategy,
		Reports:  exportSvc,
		Audit:    audit,
		Metrics:  metrics,
	})
	shareSvc := service.NewShareService(diplomaSvc, client, verifySvc,
		storage.NewSignedURLSigner(cfg.Share.Secret, cfg.Share.TTL), audit, logr,
		service.ShareConfig{PublicBaseURL: cfg.Share.PublicBaseURL, APIPrefix: cfg.APIPrefix})
	authSvc := service.NewAuthService(client, sessions, audit, validate, logr)

	return &application{
		metrics:      metrics,
		sessions:     sessions,
		auth:         handler.NewAuthHandler(authSvc, handler.CookieOptions{Name: cfg.Session.CookieName, Secure: cfg.Env == config.EnvProduction}),
		diplomas:     handler.NewDiplomaHandler(diplomaSvc),
		issuance:     handler.NewIssuanceHandler(issuanceSvc, exportSvc, cfg.Bulk.MaxFileSize),
		export:       handler.NewExportHandler(exportSvc),
		share:        handler.NewShareHandler(shareSvc),
		verification: handler.NewVerificationHandler(verifySvc, cfg.Bulk.MaxFileSize),
		audit:        handler.NewAuditHandler(audit),
		ops:          handler.NewMetricsHandler(metrics, client),
	}, cleanup, nil
}

func buildSessions(ctx context.Context, cfg *config.Config, logr *zap.Logger, closers *[]func()) (*service.SessionService, error) {
	sessionCfg := service.SessionConfig{Secret: cfg.Session.Secret, TTL: cfg.Session.TTL, Issuer: cfg.Session.Issuer}
	if cfg.Session.Store == config.SessionStoreRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		*closers = append(*closers, func() { _ = client.Close() })
		return service.NewSessionService(repository.NewRedisSessionRepository(client, logr), logr, sessionCfg), nil
	}

	repo := repository.NewMemorySessionRepository()
	go sweepSessions(ctx, repo, cfg.Session.TTL, logr)
	return service.NewSessionService(repo, logr, sessionCfg), nil
}

func sweepSessions(ctx context.Context, repo *repository.MemorySessionRepository, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := repo.Sweep(); removed > 0 {
				logr.Debug("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
