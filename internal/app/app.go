// Package app wires the configuration, store, service, cleanup worker and
// HTTP server together and ties their lifetimes to one context.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/mbocharov/shortlink/internal/api/http"
	"github.com/mbocharov/shortlink/internal/cleanup"
	"github.com/mbocharov/shortlink/internal/config"
	"github.com/mbocharov/shortlink/internal/service"
	"github.com/mbocharov/shortlink/internal/storage/memory"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := httplog.NewLogger("shortlink", httplog.Options{
		JSON:     cfg.Env == config.EnvProd,
		LogLevel: logLevel(cfg.Env),
		Concise:  cfg.Env != config.EnvProd,
	})

	store := memory.New(cfg.SnapshotPath, logger.Logger)
	if err := store.Load(); err != nil {
		// a corrupt snapshot must not keep the service down; start empty
		logger.Error("failed to load snapshot, starting with empty store",
			slog.String("op", op), slog.Any("err", err))
	}

	var svcOpts []service.Option
	if cfg.Env == config.EnvProd {
		svcOpts = append(svcOpts, service.WithPrivateHostRejection())
	}

	urlSvc := service.New(store, logger.Logger, cfg.BaseURL, svcOpts...)

	worker := cleanup.New(urlSvc, cfg.CleanupInterval.Std(), logger.Logger)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout.Std(),
		WriteTimeout:   cfg.HTTPServer.WriteTimeout.Std(),
		IdleTimeout:    cfg.HTTPServer.IdleTimeout.Std(),
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", server.Addr))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func logLevel(env string) slog.Level {
	switch env {
	case config.EnvProd:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
