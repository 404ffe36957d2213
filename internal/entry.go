// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/gistpub/internal/credential"
	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/index"
	"github.com/starford/gistpub/internal/mcpserver"
	"github.com/starford/gistpub/internal/noteservice"
	"github.com/starford/gistpub/internal/publisher"
	"github.com/starford/gistpub/internal/storage"
)

// App is an opened vault ready to publish.
type App struct {
	config      *Config
	logger      *slog.Logger
	store       *storage.FS
	db          *index.DB
	vault       *index.Vault
	credentials *credential.Store
	publisher   *publisher.Service
	notes       *noteservice.Service
}

// New opens the vault and its index and brings the index up to date.
func New(opts ...Option) (*App, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("github_api_url", cfg.GitHub.APIURL),
		slog.String("credentials_path", cfg.Credentials.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	stats, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Debug("index synced",
			slog.Int("indexed", stats.Indexed),
			slog.Int("unchanged", stats.Unchanged),
			slog.Int("removed", stats.Removed))
	}

	newClient := app.newClient
	if newClient == nil {
		newClient = func(token string) (gist.Service, error) {
			return gist.NewClient(token,
				gist.WithAPIURL(cfg.GitHub.APIURL),
				gist.WithTimeout(cfg.GitHub.Timeout))
		}
	}

	vault := index.NewVault(db, store)
	creds := credential.NewStore(cfg.Credentials.Path, cfg.GitHub.Token)

	return &App{
		config:      cfg,
		logger:      logger,
		store:       store,
		db:          db,
		vault:       vault,
		credentials: creds,
		publisher:   publisher.New(vault, store, creds, newClient, logger),
		notes:       noteservice.NewService(store, vault),
	}, nil
}

// Close releases the index.
func (a *App) Close() error {
	return a.db.Close()
}

// Publish publishes the note at the vault-relative path.
func (a *App) Publish(ctx context.Context, path string) (*publisher.Result, error) {
	path = a.vaultPath(path)
	res, err := a.publisher.PublishFile(ctx, path)
	if err != nil {
		a.logger.Error("publish failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}
	return res, nil
}

// Status returns the publish state of one note.
func (a *App) Status(ctx context.Context, path string) (*noteservice.Status, error) {
	return a.notes.Status(ctx, a.vaultPath(path))
}

// vaultPath turns a path that points into the vault from the working
// directory into a vault-relative one. Anything else is taken as already
// vault-relative.
func (a *App) vaultPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		if rel, err := filepath.Rel(a.store.Root(), abs); err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(p)
}

// Published lists every published note.
func (a *App) Published(ctx context.Context) ([]noteservice.NoteListItem, error) {
	return a.notes.ListNotes(ctx, true)
}

// Reindex brings the index up to date with the vault.
func (a *App) Reindex(_ context.Context) (index.SyncStats, error) {
	return index.Sync(a.db, a.store, a.logger)
}

// Credentials returns the token store.
func (a *App) Credentials() *credential.Store {
	return a.credentials
}

// ServeMCP serves MCP over in/out while keeping the index in sync with the
// vault. It returns when in is closed, ctx is done or a signal arrives.
func (a *App) ServeMCP(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := mcpserver.New(a.publisher, a.notes)

	a.logger.Info("MCP server starting", slog.String("vault_path", a.config.Vault.Path))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, a.db, a.store, a.store.Root(), a.logger, func(stats index.SyncStats) {
			if stats.Failed > 0 {
				a.logger.Warn("some notes could not be indexed", slog.Int("failed", stats.Failed))
			}
		})
	})

	g.Go(func() error {
		defer cancel()
		if err := srv.Serve(gCtx, in, out); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	a.logger.Info("MCP server stopped")
	return nil
}

// Run opens the vault and serves MCP on stdin/stdout.
func Run(ctx context.Context, opts ...Option) error {
	a, err := New(opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.ServeMCP(ctx, os.Stdin, os.Stdout)
}
