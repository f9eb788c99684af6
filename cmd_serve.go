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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/config"
	"github/itish2003/resultdocs/controller"
	"github/itish2003/resultdocs/services"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var (
		port        string
		reportsPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the reports directory and serve the reports API",
		Long: `Indexes the reports directory, keeps the index in sync as files change
and serves the HTTP API until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			if cmd.Flags().Changed("reports") {
				a.cfg.ReportsPath = reportsPath
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&reportsPath, "reports", "", "reports directory (overrides REPORTS_PATH)")
	return cmd
}

func (a *app) runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	files, err := services.NewFileActions(a.cfg.ReportsPath)
	if err != nil {
		return err
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	embedder, err := services.NewEmbedder(ctx, a.cfg, httpClient)
	if err != nil {
		return err
	}

	index, closeIndex, err := openIndex(ctx, a.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeIndex(); err != nil {
			logger.Warn("failed to close index", zap.Error(err))
		}
	}()

	indexer := services.NewReportIndexingService(index, embedder, services.IndexingOptions{
		Separator:    a.cfg.Separator,
		ChunkSize:    a.cfg.ChunkSize,
		ChunkOverlap: a.cfg.ChunkOverlap,
	}, logger)
	reportService := services.NewReportService(index, embedder, indexer, files, a.cfg.Separator, logger)
	reportController := controller.NewReportController(reportService, a.cfg.Separator, a.renderOptions(), logger)

	if !a.verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controller.NewRouter(reportController, logger)

	go func() {
		if err := indexer.ScanAndIndexDirectory(ctx, files.ReportsDir); err != nil {
			logger.Error("initial scan failed", zap.Error(err))
		}
	}()
	go func() {
		if err := indexer.WatchDirectory(ctx, files.ReportsDir); err != nil {
			logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", "http://localhost:"+a.cfg.Port),
			zap.String("reports", files.ReportsDir),
			zap.String("index", a.cfg.IndexBackend),
			zap.String("embedder", a.cfg.Embedder))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// openIndex builds the configured report index and a function releasing it.
func openIndex(ctx context.Context, cfg config.Config, logger *zap.Logger) (services.ReportIndex, func() error, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendMemory:
		logger.Info("using in-memory report index")
		return services.NewMemoryIndex(), func() error { return nil }, nil
	case config.IndexBackendChroma:
		index, closeFn, err := services.OpenChromaIndex(ctx, cfg.ChromaURL, cfg.ChromaCollection, logger)
		if err != nil {
			return nil, nil, err
		}
		return index, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}
}
