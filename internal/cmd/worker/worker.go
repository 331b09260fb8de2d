// Package worker parses worker command flags and launches the sync worker.
package worker

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	entrypoint "github.com/flairhub/flairhub/internal/platform/cmd"
	"github.com/flairhub/flairhub/internal/queue"
	"github.com/flairhub/flairhub/internal/riot"
	"github.com/flairhub/flairhub/internal/storage/sqlite"
	"github.com/flairhub/flairhub/internal/syncer"
)

// Config holds worker command configuration.
type Config struct {
	HealthPort  int    `env:"FLAIRHUB_WORKER_HEALTH_PORT" envDefault:"8081"`
	DBPath      string `env:"FLAIRHUB_DB_PATH" envDefault:"data/flairhub.db"`
	RiotAPIKey  string `env:"FLAIRHUB_RIOT_API_KEY"`
	RiotBaseURL string `env:"FLAIRHUB_RIOT_BASE_URL" envDefault:"https://na1.api.riotgames.com"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The worker health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.RiotBaseURL, "riot-base-url", cfg.RiotBaseURL, "The games API base URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime: the health server and the single consumer
// loop over the refresh job queue.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close sqlite store: %v", closeErr)
		}
	}()

	fetcher, err := riot.New(riot.Config{
		BaseURL: cfg.RiotBaseURL,
		APIKey:  cfg.RiotAPIKey,
	})
	if err != nil {
		return fmt.Errorf("init games api client: %w", err)
	}

	q := queue.New(store, nil)
	loop, err := syncer.New(q, fetcher, store, nil, nil)
	if err != nil {
		return fmt.Errorf("init syncer: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on worker health port %d: %w", cfg.HealthPort, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.syncer", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("worker health server listening at %v", listener.Addr())
	return loop.Run(ctx)
}
