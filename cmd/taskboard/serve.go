package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/auth"
	"taskboard/internal/blob"
	"taskboard/internal/changefeed"
	"taskboard/internal/server"
	"taskboard/internal/storage/sqlite"
)

const shutdownTimeout = 5 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr, dbPath, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and change streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if dbPath != "" {
				a.cfg.Database.Path = dbPath
			}
			if staticDir != "" {
				a.cfg.Server.StaticDir = staticDir
			}
			if err := a.cfg.ValidateServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory with built frontend")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("taskboard starting", slog.String("addr", a.cfg.Server.Addr))

	store, err := sqlite.Open(a.cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	rc := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	defer rc.Close()
	feed := changefeed.NewRedis(rc, a.cfg.Redis.Prefix, logger)
	if err := feed.Ping(ctx); err != nil {
		return fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
	}

	authn, err := auth.New(a.cfg.Auth.JWTSecret, store, a.cfg.Auth.RoleCacheTTL)
	if err != nil {
		return err
	}
	defer authn.Close()

	blobs, err := blob.New(a.cfg.Storage.Dir, a.cfg.Server.PublicURL, a.cfg.Storage.MaxUploadBytes())
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Store:     store,
		Feed:      feed,
		Auth:      authn,
		Blobs:     blobs,
		Logger:    logger,
		StaticDir: a.cfg.Server.StaticDir,
	})
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
