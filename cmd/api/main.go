package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/orgnet-app/identity-service/internal/bootstrap"
	"github.com/orgnet-app/identity-service/internal/logger"
)

// shutdownGrace bounds draining of in-flight resolutions. Re-key
// transactions carry their own, shorter deadline, so they finish or abort
// well inside this window.
const shutdownGrace = 15 * time.Second

// apiServer is the slice of *http.Server the run loop needs. Injecting it
// keeps the lifecycle testable without binding a port.
type apiServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

type boundServer struct{ *http.Server }

func (b boundServer) Addr() string { return b.Server.Addr }

// buildFunc assembles the server together with the cleanup that releases its
// resources (DB pool, cache client, publisher).
type buildFunc func() (apiServer, func(), error)

func run(build buildFunc, sigCh <-chan os.Signal, lg *zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("identity service failed to assemble")
		return 1
	}
	defer cleanup()

	crashed := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("identity service listening")
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			crashed <- serveErr
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("stopping on signal")
	case err := <-crashed:
		// exit non-zero so the orchestrator restarts the process
		lg.Error().Err(err).Msg("listener failed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("drain exceeded the grace period, closing")
		_ = srv.Close()
	}

	lg.Info().Msg("identity service stopped")
	return 0
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(run(func() (apiServer, func(), error) {
		srv, cleanup, err := bootstrap.NewServer()
		if err != nil {
			return nil, nil, err
		}
		return boundServer{srv}, cleanup, nil
	}, sigCh, logger.WithComponent("api")))
}
