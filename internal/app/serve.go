package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"crypto-recommendations/internal/scheduler"
	"crypto-recommendations/internal/server"
)

// Serve runs the HTTP API together with the periodic dataset reload.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to serve the API")
	}
	defer closeStore()

	responseCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer responseCache.Close()

	svc := a.newService(store, responseCache)
	api := server.New(svc, a.Logger)

	httpServer := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      api.Handler(a.Config.Server.RateLimit),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	errCh := make(chan error, 2)

	go func() {
		a.Logger.Info().Str("addr", httpServer.Addr).Msg("starting HTTP API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		if err := sched.Run(ctx, svc.ProcessReload); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		a.Logger.Error().Err(err).Msg("component terminated with error")
		shutdownHTTP(httpServer, a.Config.Server.ShutdownTimeout)
		return err
	}

	a.Logger.Info().Msg("shutting down")
	shutdownHTTP(httpServer, a.Config.Server.ShutdownTimeout)
	return nil
}

func shutdownHTTP(srv *http.Server, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
