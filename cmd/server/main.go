package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/carelink/carelink-be/internal/accounts"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/config"
	"github.com/carelink/carelink-be/internal/logger"
	"github.com/carelink/carelink-be/internal/ratelimit"
	"github.com/carelink/carelink-be/internal/records"
	"github.com/carelink/carelink-be/internal/server"
	"github.com/carelink/carelink-be/internal/storage"
	"github.com/carelink/carelink-be/internal/storage/memory"
	postgres "github.com/carelink/carelink-be/internal/storage/postgres"
)

const janitorInterval = 5 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelink",
		Short: "Patient and doctor records API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadLocalEnv()
		},
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.LogLevel, cfg.IsDev())
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.LogLevel, cfg.IsDev())
			if cfg.StorageDriver != config.BackendPostgres {
				return errors.New("migrate requires STORAGE_DRIVER=postgres")
			}
			store, err := postgres.NewStore(cmd.Context(), cfg.DatabaseURL, postgres.Options{
				MaxConns: cfg.DBMaxConns,
				MinConns: cfg.DBMinConns,
			})
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer store.Close()
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

// backend bundles the stores chosen by configuration.
type backend struct {
	users    storage.UserStore
	records  storage.RecordStore
	counters storage.CounterCache
	db       *postgres.Store
	janitor  func(ctx context.Context, interval time.Duration)
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	if cfg.StorageDriver == config.BackendPostgres {
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL, postgres.Options{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		b.db, b.users, b.records = store, store, store
	} else {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		b.users, b.records = store, store
	}

	if cfg.RateLimitBackend == config.BackendPostgres {
		counters := b.db.Counters()
		b.counters, b.janitor = counters, counters.RunJanitor
	} else {
		counters := memory.NewCounterCache()
		b.counters, b.janitor = counters, counters.RunJanitor
	}
	return b, nil
}

func (b *backend) Close() {
	if b.db != nil {
		b.db.Close()
	}
}

func runServer(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	go b.janitor(ctx, janitorInterval)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	window := cfg.AttemptWindow()
	accountSvc := accounts.NewService(b.users, tokens, ratelimit.New(b.counters), accounts.Options{
		Register: ratelimit.Policy{Operation: "register", MaxAttempts: cfg.RegisterMaxAttempts, Window: window},
		Login:    ratelimit.Policy{Operation: "login", MaxAttempts: cfg.LoginMaxAttempts, Window: window},
	})

	deps := server.Deps{
		Accounts: accountSvc,
		Records:  records.NewService(b.records),
		Tokens:   tokens,
	}
	if b.db != nil {
		deps.DB = b.db
	}
	srv, err := server.New(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddress()).Str("storage", cfg.StorageDriver).Msg("carelink backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found; relying on existing environment")
	}
}
