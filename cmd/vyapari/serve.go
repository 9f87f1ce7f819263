package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	genaiAdapter "github.com/bazaarsim/vyapari/internal/adapters/genai"
	"github.com/bazaarsim/vyapari/internal/adapters/httpapi"
	"github.com/bazaarsim/vyapari/internal/adapters/memory"
	redisAdapter "github.com/bazaarsim/vyapari/internal/adapters/redis"
	"github.com/bazaarsim/vyapari/internal/config"
	"github.com/bazaarsim/vyapari/internal/engine"
	"github.com/bazaarsim/vyapari/internal/governor"
	"github.com/bazaarsim/vyapari/internal/logging"
	"github.com/bazaarsim/vyapari/internal/observability"
	"github.com/bazaarsim/vyapari/pkg/persistence/middleware"
	"github.com/bazaarsim/vyapari/pkg/ports"
	"github.com/bazaarsim/vyapari/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the negotiation HTTP server",
	Long:  `Starts the pipeline in server mode, exposing POST /process plus session admin and metrics endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Configuration error: %v\n", err)
			os.Exit(1)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		logger := logging.New(logging.ParseLevel(cfg.LogLevel))

		// Persistence: Redis when configured, in-memory otherwise.
		var (
			store   ports.SessionStore
			mgrOpts = []session.Option{session.WithLogger(logger)}
		)
		if cfg.Store.RedisAddr != "" {
			client := backend.NewClient(&backend.Options{
				Addr:     cfg.Store.RedisAddr,
				Password: cfg.Store.RedisPassword,
				DB:       cfg.Store.RedisDB,
			})
			store = redisAdapter.NewFromClient(client,
				redisAdapter.WithTimeout(cfg.Store.Timeout),
				redisAdapter.WithTTL(cfg.Store.SessionTTL),
			)
			mgrOpts = append(mgrOpts, session.WithLocker(redisAdapter.NewLocker(client, "")))
			logger.Info("using redis session store", "addr", cfg.Store.RedisAddr)
		} else {
			store = memory.NewStore()
			logger.Warn("REDIS_ADDR not set, sessions are held in memory only")
		}
		if cfg.Store.RedactPII {
			store = middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(store)
			logger.Info("PII redaction enabled for turn snippets")
		}

		brain, err := genaiAdapter.New(cmd.Context(), cfg.Brain.APIKey, cfg.Brain.Model,
			genaiAdapter.WithTimeout(cfg.Brain.Timeout),
			genaiAdapter.WithMaxRetries(cfg.Brain.MaxRetries),
			genaiAdapter.WithBackoffBase(cfg.Brain.BackoffBase),
			genaiAdapter.WithLogger(logger),
		)
		if err != nil {
			fmt.Printf("Gateway error: %v\n", err)
			os.Exit(1)
		}

		eng := engine.New(
			session.NewManager(store, mgrOpts...),
			brain,
			governor.New(cfg.Rules.TurnSoftLimit, cfg.Rules.TurnHardLimit, logger),
			engine.WithMaxDelta(cfg.Rules.MaxHappinessDelta),
			engine.WithLogger(logger),
			engine.WithMetrics(observability.New(prometheus.DefaultRegisterer)),
		)

		srv := &http.Server{
			Addr:    ":" + cfg.HTTPPort,
			Handler: httpapi.NewHandler(eng, store, logger),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", srv.Addr, "model", cfg.Brain.Model)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "error", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
