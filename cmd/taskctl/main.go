package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kidtasks/internal/calendar"
	"kidtasks/internal/config"
	"kidtasks/internal/database"
	"kidtasks/internal/engine"
	"kidtasks/internal/locking"
	"kidtasks/internal/repository"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Maintenance tool for the kid tasks board",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(streaksCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(passwordCmd())
	rootCmd.AddCommand(backupCmd())

	return rootCmd
}

// app is the board stack opened from the environment configuration
type app struct {
	cfg    *config.Config
	db     *database.DB
	store  *repository.Store
	engine *engine.Engine
	closer []func() error
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: db, closer: []func() error{db.Close}}

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dates, err := calendar.New(cfg.Timezone)
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := engine.ParseResetPolicy(cfg.ResetPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Share the server's locks when it runs against Redis
	var locker engine.Locker = locking.NewKeyedMutex()
	if cfg.RedisURL != "" {
		redisLocker, err := locking.NewRedisLocker(ctx, cfg.RedisURL, locking.RedisConfig{TTL: cfg.LockTTL})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closer = append(a.closer, redisLocker.Close)
		locker = redisLocker
	}

	a.store = repository.NewStore(db)
	a.engine = engine.New(a.store.Tasks, a.store.Meta, dates,
		engine.WithTxRunner(a.store),
		engine.WithLocker(locker),
		engine.WithResetPolicy(policy),
	)
	return a, nil
}

// Close releases the database and the lock backend
func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil {
			slog.Warn("close failed", slog.Any("error", err))
		}
	}
}
