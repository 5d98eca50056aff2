package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/hygieia/pkg/controller/http"
	"github.com/secmon-lab/hygieia/pkg/service/worker"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var rc runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("HYGIEIA_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, rc.flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rc.setup(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			interval, err := rt.appCfg.IndexInterval()
			if err != nil {
				return err
			}

			var indexWorker *worker.IndexWorker
			if interval > 0 {
				indexWorker = worker.NewIndexWorker(rt.uc.Index, interval, rt.appCfg.IndexInput())
				if err := indexWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start index worker")
				}
			} else {
				logging.Default().Info("Periodic indexing disabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpctrl.WithUseCases(rt.uc)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if indexWorker != nil {
					indexWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the indexer first so an in-flight run is cancelled
				if indexWorker != nil {
					indexWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
