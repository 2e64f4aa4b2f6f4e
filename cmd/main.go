package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ChrisAbdo/event-manager/docs"
	"github.com/ChrisAbdo/event-manager/internal/config"
	"github.com/ChrisAbdo/event-manager/internal/handlers"
	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/metrics"
	"github.com/ChrisAbdo/event-manager/internal/ratelimit"
	"github.com/ChrisAbdo/event-manager/internal/repository"
	"github.com/ChrisAbdo/event-manager/internal/repository/db"
	"github.com/ChrisAbdo/event-manager/internal/server"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/go-redis/redis/v8"
)

// @title                      Event Manager API
// @version                    1.0
// @description                Account, authentication and role management for the event manager.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load configs/config.yml, .env and EVENTMGR_* overrides
	cfg, v, err := config.Load("configs")
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	logger.SetLevel(cfg.Log.Level)
	config.Watch(v, func(c *config.Config) {
		logger.SetLevel(c.Log.Level)
		log.Infow("config reloaded", "log_level", c.Log.Level)
	}, func(err error) {
		log.Warnw("config reload rejected", "err", err)
	})

	// open DB
	conn, err := openDB(cfg.DB)
	if err != nil {
		log.Fatalw("failed to init database", "driver", cfg.DB.Driver, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close database", "err", cerr)
		}
	}()

	m := metrics.New()
	m.RegisterDB(conn, cfg.DB.Driver)

	// wire dependencies
	repos := repository.NewRepository(conn, cfg.DB.Driver)
	services := service.NewService(repos, service.Options{
		JWTSecret:        []byte(cfg.JWT.Secret),
		JWTIssuer:        cfg.JWT.Issuer,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		BcryptCost:       cfg.Auth.BcryptCost,
		CacheSize:        cfg.Cache.Size,
		CacheTTL:         cfg.Cache.TTL,
		RevokedRetention: cfg.Maintenance.RevokedRetention,
		Metrics:          m,
		Log:              log,
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if created, err := services.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalw("failed to seed admin", "email", cfg.Admin.Email, "err", err)
	} else if created {
		log.Infow("admin account created", "email", cfg.Admin.Email)
	}

	opts := []handlers.Option{
		handlers.WithMetrics(m),
		handlers.WithSecureCookies(cfg.Server.SecureCookies),
		handlers.WithTrustedProxies(cfg.Server.TrustedProxies),
	}
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		opts = append(opts, handlers.WithRateLimiter(
			ratelimit.New(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Prefix),
		))
	}
	apiHandler := handlers.NewHandler(services, log, opts...)

	// token housekeeping
	go func() {
		if err := services.Maintenance.Run(ctx, cfg.Maintenance.Schedule); err != nil {
			log.Errorw("maintenance scheduler stopped", "schedule", cfg.Maintenance.Schedule, "err", err)
		}
	}()

	// start HTTP server
	srv := &server.Server{Timeouts: server.Timeouts{
		ReadHeader: cfg.Server.ReadHeaderTimeout,
		Write:      cfg.Server.WriteTimeout,
		Idle:       cfg.Server.IdleTimeout,
	}}
	runHTTPServer(srv, cfg.Server.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, cfg.Server.ShutdownTimeout, log)
}

// openDB opens the configured database and makes sure the schema exists.
func openDB(c config.DBConfig) (*sql.DB, error) {
	return db.InitDB(db.Options{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		PingTimeout:     c.PingTimeout,
	})
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, timeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
