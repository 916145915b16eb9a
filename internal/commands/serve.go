package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/spinshelf/spinshelf/internal/app"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/server"
	"github.com/spinshelf/spinshelf/internal/utils"
)

// ServeCommand returns the CLI command for running the HTTP API
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with live sync progress events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides SPINSHELF_SERVER_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			cfg := application.Config.Server
			if addr := c.String("addr"); addr != "" {
				cfg.Addr = addr
			}

			srv := server.New(
				cfg,
				application.Sync,
				application.Records,
				application.Runs,
				loggy.GetGlobalLogger(),
			)

			utils.PrintHeading("spinshelf API")
			utils.PrintInfo("Listening on " + color.YellowString("%s", cfg.Addr))
			utils.PrintInfo("POST " + color.CyanString("/api/sync") + " to start a run, " +
				"GET " + color.CyanString("/api/sync/events") + " for progress")

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					utils.PrintError(fmt.Sprintf("Server failed: %s", err))
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			utils.PrintInfo("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}

			utils.PrintSuccess("Server stopped")
			return nil
		},
	}
}
