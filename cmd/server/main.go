package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"kidtasks/internal/calendar"
	"kidtasks/internal/config"
	"kidtasks/internal/database"
	"kidtasks/internal/engine"
	"kidtasks/internal/handlers"
	"kidtasks/internal/locking"
	"kidtasks/internal/repository"
	"kidtasks/internal/security"
	"kidtasks/internal/service"
)

const (
	stepDatabase   = "Database connection"
	stepMigrations = "Running migrations"
	stepServices   = "Initializing services"
	stepSeed       = "Seeding default board"

	loginAttempts = 5
	loginWindow   = time.Minute
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartup(stepDatabase, stepMigrations, stepServices, stepSeed)
	router := handlers.NewHandlerSwitch(handlers.NewBootRouter(startup))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	startup.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.CompleteStep(stepDatabase)
	logger.Info("database connection established", slog.String("type", cfg.DatabaseType))

	startup.SetCurrentStep(stepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	startup.CompleteStep(stepMigrations)

	startup.SetCurrentStep(stepServices)
	store := repository.NewStore(db)

	dates, err := calendar.New(cfg.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	var locker engine.Locker = locking.NewKeyedMutex()
	if cfg.RedisURL != "" {
		redisLocker, err := locking.NewRedisLocker(ctx, cfg.RedisURL, locking.RedisConfig{TTL: cfg.LockTTL})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
		logger.Info("using redis locks", slog.Duration("ttl", cfg.LockTTL))
	}

	policy, err := engine.ParseResetPolicy(cfg.ResetPolicy)
	if err != nil {
		log.Fatalf("Invalid reset policy: %v", err)
	}

	notifications, err := service.NewNotificationService(ctx, service.NotificationConfig{
		AWSRegion:   cfg.AWSRegion,
		FromEmail:   cfg.SESFromEmail,
		FromName:    cfg.SESFromName,
		ParentEmail: cfg.ParentEmail,
		Debug:       cfg.EmailDebug,
	}, store.Kids, logger)
	if err != nil {
		log.Fatalf("Failed to initialize notifications: %v", err)
	}

	eng := engine.New(store.Tasks, store.Meta, dates,
		engine.WithTxRunner(store),
		engine.WithLocker(locker),
		engine.WithResetPolicy(policy),
		engine.WithObserver(notifications),
		engine.WithLogger(logger),
	)

	passwords, err := security.NewPasswordChecker(cfg.AppPassword, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to prepare password: %v", err)
	}
	secret := cfg.TokenSecret
	if secret == "" {
		secret = security.DeriveSecret(cfg.AppPassword)
	}
	tokens, err := security.NewTokenIssuer(secret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}
	startup.CompleteStep(stepServices)

	startup.SetCurrentStep(stepSeed)
	seed, err := service.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatalf("Failed to load seed: %v", err)
	}
	today, err := eng.Today()
	if err != nil {
		log.Fatalf("Failed to read the calendar day: %v", err)
	}
	if _, err := service.SeedIfEmpty(ctx, store, seed, today, logger); err != nil {
		log.Fatalf("Failed to seed board: %v", err)
	}
	startup.CompleteStep(stepSeed)

	clientIPs, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid trusted proxies: %v", err)
	}

	routes := handlers.Routes{
		Auth:       handlers.NewAuthHandler(passwords, tokens, security.NewRateLimiter(ctx, loginAttempts, loginWindow), clientIPs, logger),
		Storage:    handlers.NewStorageHandler(service.NewBoardService(store, eng, logger), logger),
		Middleware: handlers.NewMiddleware(passwords, tokens),
		Startup:    startup,
	}
	if cfg.MetricsEnabled {
		routes.Metrics = promhttp.Handler()
	}

	router.Set(handlers.NewRouter(routes))
	startup.MarkReady()
	logger.Info("server ready",
		slog.String("timezone", cfg.Timezone),
		slog.String("reset_policy", string(policy)),
		slog.Bool("password_required", cfg.PasswordRequired()),
		slog.Int("trusted_proxies", len(cfg.TrustedProxies)))

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	notifications.Wait()
}
