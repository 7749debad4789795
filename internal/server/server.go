package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Handler wires the websocket and REST routes onto a fresh mux.
// archive may be nil when no durable store is configured.
func Handler(hub *Hub, svc SessionService, archive Archive, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub, svc, log)
	registerAPIRoutes(mux, hub, svc, archive, log)

	return mux
}

// Serve runs the HTTP server until ctx is cancelled, then drains it.
func Serve(ctx context.Context, addr string, hub *Hub, svc SessionService, archive Archive, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(hub, svc, archive, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
