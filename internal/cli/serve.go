package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iform/internal/config"
	"github.com/goliatone/go-iform/internal/httpapi"
	"github.com/goliatone/go-iform/pkg/schema"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr  string
	Forms string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve form documents over HTTP",
		Long: `Serve the documents in the forms directory:

  GET  /forms                 list documents
  GET  /forms/{id}            canonical JSON
  GET  /forms/{id}/preview    HTML preview (?lang=, ?width=)
  POST /forms/{id}/validate   validate {"values": {...}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.Forms, "forms", "", "forms directory (overrides forms.dir)")
	return cmd
}

func runServe(rootOpts *RootOptions, opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.Config(config.WithAddr(opts.Addr), config.WithFormsDir(opts.Forms))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closeStore, err := newServeHandler(ctx, rootOpts, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			rootOpts.Logger().Warn("close bridge", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		rootOpts.Logger().Info("serving forms", "addr", cfg.Server.Addr, "dir", cfg.Forms.Dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "listen", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	rootOpts.Logger().Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown", err)
	}
	return nil
}

// newServeHandler wires the store, bridge and preview renderer into the HTTP
// routes.
func newServeHandler(ctx context.Context, rootOpts *RootOptions, cfg config.Config) (http.Handler, func() error, error) {
	logger := rootOpts.Logger()
	store, closeStore, err := openBridge(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := newPreviewRenderer(rootOpts, cfg, "", 0)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	registry := schema.NewRegistry(schema.NewFileStore(cfg.Forms.Dir), schema.WithLogger(logger))
	srv, err := httpapi.New(registry,
		httpapi.WithBridge(store),
		httpapi.WithPreview(renderer),
		httpapi.WithLanguage(cfg.Language),
		httpapi.WithLogger(logger),
	)
	if err != nil {
		_ = closeStore()
		return nil, nil, WrapExitError(ExitCommandError, "build server", err)
	}
	return srv.Handler(), closeStore, nil
}
