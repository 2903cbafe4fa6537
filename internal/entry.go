// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/resnum/internal/api"
	"github.com/starford/resnum/internal/batch"
	"github.com/starford/resnum/internal/index"
	"github.com/starford/resnum/internal/mcpserver"
	"github.com/starford/resnum/internal/seqstore"
	"github.com/starford/resnum/internal/spanservice"
	"github.com/starford/resnum/internal/sse"
	"github.com/starford/resnum/internal/storage"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// newApplication applies opts and installs the default logger. logOutput is
// used unless WithLogOutput overrides it.
func newApplication(logOutput io.Writer, opts ...Option) (*application, error) {
	app := &application{version: "dev", logOutput: logOutput}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	app.logger = NewLogger(app.logOutput, app.config.App.LogLevel)
	slog.SetDefault(app.logger)
	return app, nil
}

// RunSpans expands the peptide table at inputPath and writes the span table
// to the configured output path.
func RunSpans(ctx context.Context, inputPath string, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}
	cfg := app.config

	exclude, err := cfg.Fasta.ExcludePattern()
	if err != nil {
		return err
	}

	_, err = batch.Run(ctx, batch.Options{
		Params:     cfg.Spans.Params(),
		FastaPath:  cfg.Fasta.Path,
		InputPath:  inputPath,
		OutputPath: cfg.Output.Path,
		Exclude:    exclude,
		IndexPath:  cfg.SQLite.Path,
	}, app.logger)
	return err
}

// RunIndex builds or refreshes the SQLite sequence index.
func RunIndex(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	if !cfg.SQLite.Enabled() {
		return fmt.Errorf("sqlite.path is required to build an index")
	}

	exclude, err := cfg.Fasta.ExcludePattern()
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	rebuilt, err := index.Sync(ctx, db, cfg.Fasta.Path, exclude, app.logger)
	if err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	n, err := db.Count()
	if err != nil {
		return err
	}
	app.logger.Info("index ready",
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("proteins", n),
		slog.Bool("rebuilt", rebuilt))
	return nil
}

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	// stdout carries the protocol.
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}

	svc, closeFn, err := buildService(ctx, app, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	app.logger.Info("MCP server starting", slog.Int("proteins", svc.Stats().Proteins))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts...)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("fasta_path", cfg.Fasta.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("results_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, closeFn, err := buildService(ctx, app, broker.PublishStoreEvent)
	if err != nil {
		return err
	}
	defer closeFn()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if svc.Stats().Proteins == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"empty"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Reload the store when the FASTA file changes.
	if cfg.Fasta.Path != "-" {
		exclude, err := cfg.Fasta.ExcludePattern()
		if err != nil {
			return err
		}
		var idx index.SequenceIndex
		if app.db != nil {
			idx = app.db
		}
		g.Go(func() error {
			if err := index.Watch(gCtx, idx, cfg.Fasta.Path, exclude, logger, svc.Reload); err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher.
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildService loads the protein store, prepares the results directory and
// wires the span service. The returned func releases the index, if any.
func buildService(ctx context.Context, app *application, notify spanservice.Notifier) (*spanservice.Service, func(), error) {
	cfg := app.config

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create results dir: %w", err)
	}
	results, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	app.logger.Debug("results storage ready", slog.String("root", results.Root()))

	store, err := loadStore(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if app.db != nil {
			app.db.Close()
		}
	}
	return spanservice.NewService(store, results, cfg.Spans.Params(), notify), closeFn, nil
}

// loadStore reads the protein database. With an index configured, the index
// is synced first and the store is filled from it, which skips parsing when
// the FASTA file has not changed.
func loadStore(ctx context.Context, app *application) (*seqstore.Store, error) {
	cfg := app.config
	if cfg.Fasta.Path == "" {
		return nil, fmt.Errorf("fasta.path is required")
	}
	exclude, err := cfg.Fasta.ExcludePattern()
	if err != nil {
		return nil, err
	}

	if !cfg.SQLite.Enabled() || cfg.Fasta.Path == "-" {
		store, err := seqstore.Load(ctx, cfg.Fasta.Path, exclude)
		if err != nil {
			return nil, fmt.Errorf("error reading fasta file: %w", err)
		}
		app.logger.Info("fasta loaded", slog.Int("proteins", store.Len()))
		return store, nil
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if _, err := index.Sync(ctx, db, cfg.Fasta.Path, exclude, app.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("error reading fasta file: %w", err)
	}
	records, err := db.Records()
	if err != nil {
		db.Close()
		return nil, err
	}
	app.db = db
	app.logger.Info("index loaded", slog.Int("proteins", len(records)))
	return seqstore.FromRecords(records), nil
}
