package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/pulse/internal/server"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web interface until interrupted. A running export is cancelled on exit.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(ctx)
	if err != nil {
		return err
	}
	spotify, err := a.requireSpotify()
	if err != nil {
		return err
	}
	r.applyDefaultExportDir(ctx, a)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewExportHub(a.pipeline, a.queue, r.logger)
	api := server.NewAPI(ctx, server.Deps{
		Account: spotify,
		Tokens:  a.tokens,
		Catalog: a.catalog,
		Queue:   a.queue,
		Hub:     hub,
		Web:     web.Handler(),
		Logger:  r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger), server.RecoverMiddleware(r.logger))
	api.Register(router)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	srv := server.New(addr, router, r.logger)

	url := fmt.Sprintf("http://%s/", addr)
	r.writePlain("→ Serving pulse at %s (Ctrl+C to stop)\n", url)
	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	err = srv.Run(ctx)

	if hub.Cancel() {
		r.logger.Info("cancelling export in progress")
	}
	hub.Wait()
	return err
}
