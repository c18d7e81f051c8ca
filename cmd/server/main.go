// Command server runs the glatt batch normalization service.
//
// Configuration is loaded from an optional YAML file plus GLATT_*
// environment overrides:
//
//	GLATT_CONFIG       - Path to the YAML config file (or use -config)
//	GLATT_PORT         - Listen port (default: 8080)
//	GLATT_STORAGE      - Storage type: "none", "memory" or "postgres" (default: "memory")
//	GLATT_STORAGE_SIZE - Max runs in memory store (default: 10000)
//	GLATT_POSTGRES_DSN - PostgreSQL connection string
//	GLATT_AUTH_TYPE    - Auth type: "none", "apikey" or "jwt" (default: "none")
//	GLATT_DEBUG        - Debug categories, e.g. "batch,normalize" or "all"
//	GLATT_LOG_LEVEL    - Log level: ERROR, WARN, INFO, DEBUG or TRACE
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/auth"
	"github.com/glatt-dev/glatt/pkg/auth/apikey"
	"github.com/glatt-dev/glatt/pkg/auth/jwt"
	"github.com/glatt-dev/glatt/pkg/auth/noop"
	"github.com/glatt-dev/glatt/pkg/batch"
	"github.com/glatt-dev/glatt/pkg/config"
	"github.com/glatt-dev/glatt/pkg/debug"
	"github.com/glatt-dev/glatt/pkg/observability"
	"github.com/glatt-dev/glatt/pkg/storage/memory"
	"github.com/glatt-dev/glatt/pkg/storage/postgres"
	"github.com/glatt-dev/glatt/pkg/transport"
	transporthttp "github.com/glatt-dev/glatt/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create optional store.
	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	// Create batch runner.
	runner := batch.New(batch.Config{
		Validation: api.ValidationConfig{MaxRecords: cfg.Batch.MaxRecords},
		Defaults: api.BatchOptions{
			InputField:      cfg.Batch.InputField,
			OutputField:     cfg.Batch.OutputField,
			ProcessAllItems: cfg.Batch.ProcessAllItems,
			StrictMode:      cfg.Batch.StrictMode,
		},
	})

	// Create HTTP adapter with the default middleware stack.
	adapter := transporthttp.NewAdapter(runner, store, transporthttp.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		MaxBodySize:     cfg.Server.MaxBodySize,
		ShutdownTimeout: int(cfg.Server.ShutdownTimeout.Seconds()),
	},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	)

	// Build HTTP mux with operational endpoints.
	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.HealthCheck(r.Context()); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	// Wrap with metrics and auth. Auth is outermost so rejected requests
	// are still counted.
	var handler http.Handler = observability.MetricsMiddleware(mux)

	chain, err := buildAuthChain(cfg.Auth)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}
	handler = auth.Middleware(chain, buildRateLimiter(cfg.Auth.RateLimit), auth.DefaultBypassEndpoints)(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"storage", cfg.Storage.Type,
			"auth", cfg.Auth.Type,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newStore creates the run store named by the storage configuration.
// Returns nil for type "none".
func newStore(ctx context.Context, cfg config.StorageConfig) (transport.RunStore, error) {
	switch cfg.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("storage disabled")
		return nil, nil
	}
}

// buildAuthChain assembles the authenticator chain from configuration.
// Type "none" yields an empty chain that accepts everything.
func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
					Metadata:    map[string]string{"tenant_id": k.TenantID},
				},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		authn := jwt.New(jwt.Config{
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			JWKSURL:     cfg.JWT.JWKSURL,
			UserClaim:   cfg.JWT.UserClaim,
			TenantClaim: cfg.JWT.TenantClaim,
		})
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{authn},
			DefaultDecision: auth.No,
		}, nil
	case "none", "":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// buildRateLimiter creates the in-process limiter, or nil when disabled.
func buildRateLimiter(cfg config.RateLimitConfig) auth.RateLimiter {
	if !cfg.Enabled {
		return nil
	}
	tiers := make(map[string]auth.TierConfig, len(cfg.Tiers))
	for name, rpm := range cfg.Tiers {
		tiers[name] = auth.TierConfig{RequestsPerMinute: rpm}
	}
	return auth.NewInProcessLimiter(tiers, cfg.DefaultRPM)
}
