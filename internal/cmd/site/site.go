// Package site parses site command flags and launches the site HTTP server.
package site

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flairhub/flairhub/internal/linker"
	entrypoint "github.com/flairhub/flairhub/internal/platform/cmd"
	"github.com/flairhub/flairhub/internal/queue"
	siteserver "github.com/flairhub/flairhub/internal/site"
	"github.com/flairhub/flairhub/internal/storage/sqlite"
	"github.com/flairhub/flairhub/internal/token"
)

const shutdownTimeout = 10 * time.Second

// Config holds site command configuration.
type Config struct {
	Addr                string `env:"FLAIRHUB_SITE_ADDR" envDefault:"localhost:8080"`
	DBPath              string `env:"FLAIRHUB_DB_PATH" envDefault:"data/flairhub.db"`
	TokenSecret         string `env:"FLAIRHUB_TOKEN_SECRET"`
	RedditClientID      string `env:"FLAIRHUB_REDDIT_CLIENT_ID"`
	RedditClientSecret  string `env:"FLAIRHUB_REDDIT_CLIENT_SECRET"`
	RedditAuthorizeURL  string `env:"FLAIRHUB_REDDIT_AUTHORIZE_URL" envDefault:"https://www.reddit.com/api/v1/authorize"`
	RedditTokenURL      string `env:"FLAIRHUB_REDDIT_TOKEN_URL" envDefault:"https://www.reddit.com/api/v1/access_token"`
	RedditIdentityURL   string `env:"FLAIRHUB_REDDIT_IDENTITY_URL" envDefault:"https://oauth.reddit.com/api/v1/me"`
	CallbackURL         string `env:"FLAIRHUB_CALLBACK_URL"`
	PagesOrigin         string `env:"FLAIRHUB_PAGES_ORIGIN"`
	AdminKey            string `env:"FLAIRHUB_ADMIN_KEY"`
	BulkUpdateBatchSize int    `env:"FLAIRHUB_BULK_UPDATE_BATCH_SIZE" envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The site HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.PagesOrigin, "pages-origin", cfg.PagesOrigin, "The static frontend origin")
	fs.IntVar(&cfg.BulkUpdateBatchSize, "bulk-batch-size", cfg.BulkUpdateBatchSize, "Stale summoners enqueued per admin refresh")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeTokenSecret decodes the base64url-encoded HMAC secret. A missing or
// short secret is fatal at startup, never at request time.
func DecodeTokenSecret(raw string) ([]byte, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "=")
	if trimmed == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	secret, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode token secret: %w", err)
	}
	if len(secret) < token.MinSecretLen {
		return nil, fmt.Errorf("token secret must decode to at least %d bytes, got %d", token.MinSecretLen, len(secret))
	}
	return secret, nil
}

// Run starts the site runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSite, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	secret, err := DecodeTokenSecret(cfg.TokenSecret)
	if err != nil {
		return err
	}
	codec, err := token.NewCodec(secret, nil)
	if err != nil {
		return err
	}

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

	l, err := linker.New(linker.Config{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		AuthorizeURL: cfg.RedditAuthorizeURL,
		TokenURL:     cfg.RedditTokenURL,
		IdentityURL:  cfg.RedditIdentityURL,
		CallbackURL:  cfg.CallbackURL,
	}, codec, store, nil, nil)
	if err != nil {
		return fmt.Errorf("init identity linker: %w", err)
	}

	q := queue.New(store, nil)
	server, err := siteserver.NewServer(siteserver.Config{
		PagesOrigin:         cfg.PagesOrigin,
		AdminKey:            cfg.AdminKey,
		BulkUpdateBatchSize: cfg.BulkUpdateBatchSize,
	}, codec, l, store, q)
	if err != nil {
		return fmt.Errorf("init site server: %w", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	log.Printf("site server listening at %s", cfg.Addr)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve site: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown site: %w", err)
	}
	<-serveErr
	return nil
}
