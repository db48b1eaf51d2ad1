package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/config"
	"arithmetic-practice-service/internal/fileio"
	"arithmetic-practice-service/internal/generator"
	"arithmetic-practice-service/internal/infra/memory"
	pghistory "arithmetic-practice-service/internal/infra/postgres"
	redisstore "arithmetic-practice-service/internal/infra/redis"
	transport "arithmetic-practice-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the practice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	rules, err := cfg.RuleTable()
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Practice.SessionTTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		sessions app.SessionRepository  = memory.NewSessionStore()
		ledger   app.WrongProblemLedger = memory.NewWrongProblemLedger()
		history  app.HistoryLog         = memory.NewHistoryLog()
	)
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
		ledger = redisstore.NewWrongProblemLedger(redisClient)
		history = redisstore.NewHistoryLog(redisClient)
	}
	if pool != nil {
		history = pghistory.NewHistoryLog(pool)
		if redisClient != nil {
			history = redisstore.NewCachedHistoryLog(redisClient, history, cacheTTL)
		}
	}

	service := app.NewPracticeService(generator.New(rules), sessions, ledger, history)
	router := transport.NewRouter(transport.Container{
		Service:        service,
		Importer:       fileio.NewImporter(rules),
		Rules:          rules,
		Limits:         transport.Limits{DefaultCount: cfg.Practice.DefaultCount, MaxCount: cfg.Practice.MaxCount},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting practice service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
