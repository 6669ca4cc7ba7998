package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	appanalysis "github.com/bryanwahyu/forensic-lab/internal/application/analysis"
	appsession "github.com/bryanwahyu/forensic-lab/internal/application/session"
	"github.com/bryanwahyu/forensic-lab/internal/config"
	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/infra/ai/gemini"
	"github.com/bryanwahyu/forensic-lab/internal/infra/ai/openai"
	"github.com/bryanwahyu/forensic-lab/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/forensic-lab/internal/infra/db/mysql"
	"github.com/bryanwahyu/forensic-lab/internal/infra/db/postgres"
	"github.com/bryanwahyu/forensic-lab/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/forensic-lab/internal/infra/storage"
	"github.com/bryanwahyu/forensic-lab/internal/infra/token"
	"github.com/bryanwahyu/forensic-lab/internal/logging"
	"github.com/bryanwahyu/forensic-lab/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, accounts, logs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ready := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	signer, err := token.NewSigner(cfg.Session.Secret, cfg.Session.Issuer)
	if err != nil {
		return err
	}

	catalog := analysis.NewCatalog(cfg.Scoring.DefaultModel, cfg.Scoring.Models)
	logger.Info("scoring models",
		zap.String("provider", cfg.Scoring.Provider),
		zap.String("default", catalog.Default()),
		zap.Strings("allowed", catalog.Models()),
	)

	analyzer := &appanalysis.Service{
		Tokens:         signer,
		Accounts:       accounts,
		Logs:           logs,
		Provider:       newProvider(cfg),
		Models:         catalog,
		MaxPromptChars: cfg.Scoring.MaxPromptChars,
		Timeout:        cfg.Scoring.Timeout,
		Clock:          application.SystemClock{},
		Log:            logger.Named("analysis"),
	}

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		idx := cache.NewFingerprintIndex(rdb, cfg.Redis.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := idx.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		analyzer.Index = idx
		ready["redis"] = middleware.CheckFunc(idx.Ping)
	}

	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		analyzer.Archive = store
		ready["minio"] = middleware.CheckFunc(store.Ping)
	}

	sessions := &appsession.Service{
		Accounts: accounts,
		Tokens:   signer,
		Clock:    application.SystemClock{},
		TTL:      cfg.Session.TTL,
		Log:      logger.Named("session"),
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Sessions:       sessions,
		Analyzer:       analyzer,
		Metrics:        middleware.NewMetrics(),
		Ready:          ready,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            logger.Named("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.Scoring.Provider),
			zap.String("default_model", cfg.Scoring.DefaultModel),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		sessions.Wait()
		return err
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, access.Repository, analysis.LogRepository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, postgres.DSN(postgres.Options{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Name:     cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}))
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
		}
		return db, postgres.NewAccountRepository(db), postgres.NewAnalysisLogRepository(db), nil
	default:
		db, err := mysqlp.Connect(ctx, mysqlp.DSN(mysqlp.Options{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Name:     cfg.Database.Name,
		}))
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := mysqlp.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
		}
		return db, mysqlp.NewAccountRepository(db), mysqlp.NewAnalysisLogRepository(db), nil
	}
}

func newProvider(cfg *config.Config) analysis.Provider {
	client := &http.Client{Timeout: cfg.Scoring.Timeout + 5*time.Second}
	if cfg.Scoring.Provider == "openai" {
		return openai.NewClient(cfg.Scoring.BaseURL, client)
	}
	return gemini.NewClient(cfg.Scoring.BaseURL, client)
}
