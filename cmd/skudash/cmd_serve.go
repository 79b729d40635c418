package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skudash/internal/images"
	"skudash/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := loadTable()
	if err != nil {
		return err
	}
	res, err := newResolver()
	if err != nil {
		return err
	}

	imageDir := ""
	if imageDirExists() {
		imageDir = cfg.ImageDir()
	} else if cfg.ImageDir() != "" {
		logger.Warn("image directory not found, local images disabled", zap.String("dir", cfg.ImageDir()))
	}

	srv := server.New(server.Options{
		Table:      table,
		Resolver:   res,
		Dashboard:  cfg.Dashboard,
		ImageDir:   imageDir,
		ImageRoute: cfg.Images.Route,
		Logger:     logger,
	})

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dashboard listening",
			zap.String("addr", addr),
			zap.Int("rows", table.Len()),
			zap.Bool("mapping", table.MappingApplied()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	if cfg.Images.Watch && imageDir != "" {
		w, err := images.NewWatcher(imageDir, res, logger)
		if err != nil {
			logger.Warn("image watcher disabled", zap.Error(err))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}
	return g.Wait()
}
