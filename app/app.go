// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"knoword-api/config"
	"knoword-api/db"
	"knoword-api/handler"
	"knoword-api/logger"
	"knoword-api/repository"
	"knoword-api/router"
	"knoword-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
)

func Run() {
	config.LoadConfig(".")
	cfg := config.AppConfig
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(cfg.Database.MigrationsPath, db.DSN()); err != nil {
			logger.Log.Fatalf("Error running migrations: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Session.Store == "redis" {
		redisClient, err = db.ConnectRedis()
		if err != nil {
			logger.Log.Fatalf("Error connecting to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	r := newRouter(cfg, database, redisClient, newMailer(cfg))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// newSessionStore picks the session backend named by session.store. The
// in-memory store only suits a single instance.
func newSessionStore(cfg config.Config, redisClient *redis.Client) service.SessionStore {
	if cfg.Session.Store == "memory" || redisClient == nil {
		logger.Log.Warn("Using in-memory session store; sessions are lost on restart")
		return repository.NewMemorySessionRepository()
	}
	return repository.NewSessionRepository(redisClient, cfg.Session.KeyPrefix)
}

func newMailer(cfg config.Config) service.Mailer {
	if cfg.Mail.Host == "" {
		logger.Log.Warn("mail.host is not set; verification e-mails are written to the log")
		return service.LogMailer{}
	}
	return service.NewSMTPMailer(service.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
}

// newRouter wires repositories, services and handlers together.
func newRouter(cfg config.Config, database *sql.DB, redisClient *redis.Client, mailer service.Mailer, authOpts ...service.AuthOption) http.Handler {
	userRepo := repository.NewUserRepository(database)
	sessionStore := newSessionStore(cfg, redisClient)

	codec := service.NewTokenCodec([]byte(cfg.JWT.SecretKey))
	sessionManager := service.NewSessionManager(codec, userRepo, sessionStore, service.SessionOptions{
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		StoreTimeout:    cfg.Session.StoreTimeout,
	})

	authOpts = append([]service.AuthOption{
		service.WithVerification(cfg.Mail.VerifyURL, cfg.Mail.VerificationTTL),
	}, authOpts...)
	authService := service.NewAuthService(userRepo, mailer, authOpts...)
	userService := service.NewUserService(userRepo)

	authHandler := handler.NewAuthHandler(authService, sessionManager, handler.CookieConfig{
		Domain:          cfg.Cookie.Domain,
		Secure:          cfg.Cookie.Secure,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
	})
	userHandler := handler.NewUserHandler(userService)

	checks := []handler.HealthCheck{{Name: "database", Check: database.PingContext}}
	if redisClient != nil && cfg.Session.Store == "redis" {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	healthHandler := handler.NewHealthHandler(checks...)

	return router.NewRouter(authHandler, userHandler, healthHandler, handler.AuthMiddleware(sessionManager))
}

// TestApp exposes the wired router together with its backing stores.
type TestApp struct {
	DB     *sql.DB
	Redis  *redis.Client
	Router http.Handler
}

// NewTestApp wires the application from config.AppConfig around the given
// database and Redis client. Verification e-mails go to mailer.
func NewTestApp(database *sql.DB, redisClient *redis.Client, mailer service.Mailer, authOpts ...service.AuthOption) *TestApp {
	return &TestApp{
		DB:     database,
		Redis:  redisClient,
		Router: newRouter(config.AppConfig, database, redisClient, mailer, authOpts...),
	}
}
