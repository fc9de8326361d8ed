package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	xhttp "StockPredictor/pkg/http"
	applogger "StockPredictor/pkg/logger"
)

// App runs the HTTP server until interrupted, then releases its resources.
type App struct {
	l          *applogger.Logger
	httpServer *xhttp.Server
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates an App serving httpServer.
func New(l *applogger.Logger, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{l: l, httpServer: httpServer}
}

// OnShutdown registers c to be closed after the server stops, in registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the application and blocks until ctx is cancelled, a signal
// arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	a.l.Info("shutting down")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}

// CloseFunc adapts a plain function to io.Closer.
type CloseFunc func() error

func (f CloseFunc) Close() error { return f() }
