package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/complaint-desk-api/api/swagger"
	"github.com/noah-isme/complaint-desk-api/internal/handler"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/internal/store"
	"github.com/noah-isme/complaint-desk-api/pkg/cache"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/database"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
	"github.com/noah-isme/complaint-desk-api/pkg/logger"
	"github.com/noah-isme/complaint-desk-api/pkg/mailer"
)

// @title School Complaint Desk API
// @version 1.0.0
// @description Parents submit complaints, teachers triage them by category, administrators manage accounts and the student registry.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	var gateway store.Gateway
	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()
		pg := repository.NewPostgresGateway(db)
		if err := pg.Migrate(ctx); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
		gateway = pg
		checks["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	} else {
		logr.Warn("database disabled, state lives in memory only")
		gateway = repository.NewMemoryGateway()
	}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, "complaint-desk", logr)
			defer repo.Close()
			cacheRepo = repo
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	var sender mailer.Sender = mailer.Noop{}
	var recipients []string
	if cfg.Notifications.Enabled {
		smtp, err := mailer.NewSMTP(cfg.Notifications)
		if err != nil {
			logr.Warn("notifications disabled", zap.Error(err))
		} else {
			sender = smtp
			recipients = cfg.Notifications.Recipients
		}
	}
	notifications := service.NewNotificationService(sender, recipients, logr)
	queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifications.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	metrics := service.NewMetricsService(queue.Pending)
	st := store.New(gateway, logr, store.WithFailureRecorder(metrics))
	if err := st.Hydrate(ctx); err != nil {
		logr.Fatal("could not load persisted state", zap.Error(err))
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.StatsTTL, logr, cacheRepo != nil)
	authz := service.NewAuthorizationService(st)
	accounts := service.NewAccountService(st, authz, cacheSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err := seed(ctx, cfg, st, accounts); err != nil {
		logr.Warn("seeding incomplete", zap.Error(err))
	}

	complaints := service.NewComplaintService(st, authz, notifications, cacheSvc, metrics, validate, logr)
	registry := service.NewRegistryService(st, cacheSvc, validate, logr, service.RegistryConfig{
		DefaultYear:    cfg.Registry.DefaultYear,
		MaxImportBytes: cfg.Registry.MaxImportBytes,
	})

	pdf := export.NewPDFExporter()
	if cfg.Export.PDFFontPath != "" {
		if err := pdf.UseUTF8Font(cfg.Export.PDFFontPath); err != nil {
			logr.Warn("pdf font unavailable, non-latin text will not render", zap.Error(err))
		}
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Docs:           cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         accounts,
		Auth:           handler.NewAuthHandler(accounts),
		Complaints:     handler.NewComplaintHandler(complaints, service.NewExportService(authz, nil, pdf, logr)),
		Admin: handler.NewAdminHandler(
			accounts,
			service.NewTeacherAssignmentService(st, validate, logr),
			registry,
			service.NewStatsService(st, cacheSvc, cfg.Cache.StatsTTL, logr),
		),
		Probes: handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "durable", cfg.Database.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func seed(ctx context.Context, cfg *config.Config, st *store.Store, accounts *service.AccountService) error {
	opts := store.SeedOptions{AdminName: cfg.Seed.AdminName}
	if cfg.Seed.AdminPassword != "" {
		hash, err := accounts.HashPassword(cfg.Seed.AdminPassword)
		if err != nil {
			return err
		}
		opts.AdminPasswordHash = hash
	}
	if cfg.Seed.StudentRegistry {
		opts.Students = store.SampleRegistry
	}
	return st.Seed(ctx, opts)
}
