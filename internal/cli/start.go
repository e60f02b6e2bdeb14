package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepsync/internal/app"
	"prepsync/internal/config"
	"prepsync/internal/connectivity"
	"prepsync/internal/infra/memory"
	"prepsync/internal/infra/postgres"
	redisstore "prepsync/internal/infra/redis"
	"prepsync/internal/infra/remote"
	"prepsync/internal/logger"
	transport "prepsync/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the sync agent.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the offline sync agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), *configPath, *port)
		},
	}
}

func runAgent(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store := openStore(ctx, cfg, log)
	client := remote.NewClient(cfg.Sync.Endpoint, cfg.Sync.QuestionsURL)

	// Without a websocket watcher the agent assumes online until the host
	// reports otherwise through POST /connectivity.
	monitor := connectivity.NewSignalMonitor(cfg.Sync.WSEndpoint == "")

	queue := app.NewSyncQueue(store, client, monitor, log)
	recorder := app.NewRecorder(store, queue, client, log)
	tracker := app.NewAnonymousTracker(memory.NewKeyValue(), log)

	unbind := connectivity.BindDrain(monitor, queue)
	defer unbind()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Sync.WSEndpoint != "" {
		watcher := connectivity.NewWSWatcher(cfg.Sync.WSEndpoint, monitor, log)
		go watcher.Run(watchCtx)
	}

	// Pick up anything left queued by a previous run.
	queue.TriggerDrain()

	mux := http.NewServeMux()
	handler := transport.NewHandler(recorder, tracker, queue, monitor, log)
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting sync agent", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down sync agent")
	case <-ctx.Done():
		log.Info("context canceled, shutting down sync agent")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore picks the configured backend, degrading to the in-memory store
// when the durable engine cannot be opened. Storage being unavailable is
// fatal for persistence only, never for the agent itself.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) app.Store {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			log.Warn("postgres unavailable, degrading to memory store", zap.Error(err))
			return memory.Open(app.SchemaVersion, app.Partitions())
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Warn("postgres unavailable, degrading to memory store", zap.Error(err))
			return memory.Open(app.SchemaVersion, app.Partitions())
		}
		return postgres.New(pool, app.Partitions())
	}

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := redisstore.Open(ctx, client, app.SchemaVersion, app.Partitions())
		if err != nil {
			log.Warn("redis unavailable, degrading to memory store", zap.Error(err))
			return memory.Open(app.SchemaVersion, app.Partitions())
		}
		return store
	}

	log.Info("no store backend configured, using memory store")
	return memory.Open(app.SchemaVersion, app.Partitions())
}
