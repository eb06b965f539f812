package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/MailPulse/config"
	apprepository "github.com/sifan077/MailPulse/internal/app/repository"
	appserver "github.com/sifan077/MailPulse/internal/app/server"
	appservice "github.com/sifan077/MailPulse/internal/app/service"
	inthttp "github.com/sifan077/MailPulse/internal/http/handler"
	"github.com/sifan077/MailPulse/internal/http/middleware"
	"github.com/sifan077/MailPulse/internal/http/util"
	"github.com/sifan077/MailPulse/internal/infra/logger"
	infraMail "github.com/sifan077/MailPulse/internal/infra/mail"
	infraNATS "github.com/sifan077/MailPulse/internal/infra/nats"
	infraPostgres "github.com/sifan077/MailPulse/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/MailPulse/internal/infra/prometheus"
	infraRedis "github.com/sifan077/MailPulse/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log = logger.MustInit(logger.Config{
		Development: isDev,
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("mail_provider", cfg.Mail.Provider),
		zap.String("timezone", cfg.Server.Timezone),
		zap.Bool("auth_disabled", cfg.Auth.Disabled),
	)

	location, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Fatal("Invalid display timezone", zap.Error(err))
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, infraPostgres.Models()...); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	activityFeed := appservice.NewActivityFeed(redisClient)
	var sink appservice.EngagementSink = activityFeed

	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()

		if err := appservice.EnsureEngagementStream(js); err != nil {
			log.Fatal("Failed to ensure engagement stream", zap.Error(err))
		}

		consumer := appservice.NewActivityConsumer(js, log, activityFeed)
		if err := consumer.Start(); err != nil {
			log.Fatal("Failed to start activity consumer", zap.Error(err))
		}
		defer consumer.Stop()

		sink = appservice.NewEngagementPublisher(js)
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))
	} else {
		log.Info("NATS disabled, writing activity feed directly")
	}

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	sender, err := infraMail.New(ctx, cfg.Mail)
	if err != nil {
		log.Fatal("Failed to configure mail sender", zap.Error(err))
	}

	var tokens *util.IdentityTokens
	if !cfg.Auth.Disabled {
		tokens = util.NewIdentityTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	} else {
		log.Warn("Dashboard authentication disabled, every caller is an administrator")
	}

	trackingRepo := apprepository.NewTrackingRepository(gormDB)
	eventRepo := apprepository.NewEventRepository(gormDB)

	geo := appservice.NewGeoResolver(appservice.GeoResolverDeps{
		Enabled:  cfg.Geolocation.Enabled,
		Endpoint: cfg.Geolocation.Endpoint,
		Timeout:  cfg.Geolocation.Timeout,
		Cache:    appservice.NewRedisGeoCache(redisClient, cfg.Geolocation.CacheTTL),
		Logger:   log,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Redis:     redisClient,
		Tokens:    tokens,
		RateLimit: middleware.RateLimitConfigFrom(cfg.RateLimit),
		Recorder: appservice.NewEventRecorder(appservice.EventRecorderDeps{
			Records: trackingRepo,
			Events:  eventRepo,
			Geo:     geo,
			Sink:    sink,
			Logger:  log,
		}),
		Queries: appservice.NewTrackingQueryService(trackingRepo, cfg.Server.PageSize),
		Dispatcher: appservice.NewEmailDispatcher(appservice.EmailDispatcherDeps{
			Records:            trackingRepo,
			Sender:             sender,
			From:               infraMail.FromAddress(cfg.Mail),
			DefaultRedirectURL: cfg.Server.DefaultRedirectURL,
			Logger:             log,
		}),
		Admin:    appservice.NewAdminService(trackingRepo, log),
		Activity: activityFeed,
		Checks: map[string]inthttp.Check{
			"postgres": func(ctx context.Context) error { return infraPostgres.Ping(ctx, pool) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Location:           location,
		PublicBaseURL:      cfg.Server.PublicBaseURL,
		DefaultRedirectURL: cfg.Server.DefaultRedirectURL,
		TrustedProxies:     cfg.Server.TrustedProxies,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))
	if err := server.Listen(cfg.Server.Addr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
