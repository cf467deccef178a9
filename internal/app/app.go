// Package app собирает зависимости и управляет жизненным циклом сервера рекомендаций.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	v1Grpc "github.com/DRSN-tech/shop-recommender/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/shop-recommender/internal/delivery/v1/http"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

type App struct {
	container *Container
	httpSrv   *v1Http.Server
	grpcSrv   *v1Grpc.GRPCServer
	logger    logger.Logger
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	c, err := NewContainer(context.Background(), cfg, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	grpcSrv := v1Grpc.NewGRPCServer(cfg.Grpc, log)
	grpcSrv.RegisterServices(c.Search, c.Recommend)

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(c.Search, c.Recommend, c.Checks)

	return &App{
		container: c,
		httpSrv:   v1Http.NewServer(r, cfg.Http),
		grpcSrv:   grpcSrv,
		logger:    log,
	}, nil
}

// Run блокируется до сигнала SIGINT/SIGTERM или падения одного из серверов.
func (a *App) Run() error {
	cfg := a.container.Cfg

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", cfg.Grpc.NetworkMode, cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	httpErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			httpErrCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-httpErrCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.grpcSrv.Stop(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warnf("gRPC server shutdown timeout")
		} else {
			a.logger.Errorf(err, "gRPC server shutdown error")
		}
	}

	if err := a.container.Closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
