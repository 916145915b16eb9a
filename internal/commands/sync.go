package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/spinshelf/spinshelf/internal/app"
	"github.com/spinshelf/spinshelf/internal/sync"
	"github.com/spinshelf/spinshelf/internal/utils"
)

// SyncCommand returns the CLI command for syncing with Discogs
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync the local catalog with your Discogs collection",
		Description: "Pulls releases from your Discogs collection that are missing locally, " +
			"then pushes local records that are missing from the collection. " +
			"Neither side ever has anything deleted.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress per-item progress output",
			},
		},
		Subcommands: []*cli.Command{
			syncHistoryCommand(),
		},
		Action: runSync,
	}
}

func runSync(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if !application.Config.Discogs.HasCredentials() {
		utils.PrintError("Discogs credentials are not configured")
		utils.PrintInfo("Set " + color.CyanString("SPINSHELF_DISCOGS_USERNAME") +
			" and " + color.CyanString("SPINSHELF_DISCOGS_TOKEN") + " and try again.")
		return fmt.Errorf("discogs credentials not configured")
	}

	utils.PrintHeading("Syncing with Discogs")

	// Ctrl-C stops the run between items; progress made so far is kept
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	quiet := c.Bool("quiet")
	var lastPhase sync.Phase

	emit := func(p sync.Progress) {
		if quiet || p.Phase == sync.PhaseDone {
			return
		}
		if p.Phase != lastPhase {
			lastPhase = p.Phase
			switch p.Phase {
			case sync.PhasePull:
				utils.PrintInfo(fmt.Sprintf("Pulling from collection (%d remote items)", p.TotalRemoteItems))
			case sync.PhasePush:
				utils.PrintInfo("Pushing local records to collection")
			}
		}
		fmt.Printf("\r  pulled %s  skipped %s  pushed %s  errors %s ",
			color.GreenString("%d", p.Pulled),
			color.YellowString("%d", p.Skipped),
			color.CyanString("%d", p.Pushed),
			color.RedString("%d", len(p.Errors)),
		)
	}

	final, err := application.Sync.Run(ctx, emit)
	if !quiet {
		fmt.Println()
	}
	if err != nil {
		utils.PrintError(fmt.Sprintf("Sync failed: %s", err))
		return fmt.Errorf("sync failed: %w", err)
	}

	printSyncSummary(final)

	if !final.Succeeded() {
		return fmt.Errorf("sync completed with %d error(s)", len(final.Errors))
	}
	return nil
}

func printSyncSummary(p *sync.Progress) {
	utils.PrintTable(
		[]string{"Pulled", "Pushed", "Skipped", "Errors"},
		[][]string{{
			fmt.Sprintf("%d", p.Pulled),
			fmt.Sprintf("%d", p.Pushed),
			fmt.Sprintf("%d", p.Skipped),
			fmt.Sprintf("%d", len(p.Errors)),
		}},
		utils.TableOptions{Title: "Sync Summary"},
	)

	if len(p.Errors) > 0 {
		utils.PrintWarning("Some items could not be synced:")
		for _, msg := range p.Errors {
			utils.PrintError("  " + msg)
		}
		return
	}

	utils.PrintSuccess("Catalog and collection are in sync")
}

func syncHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show past sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of runs to show",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			runs, err := application.Runs.ListRuns(c.Context, c.Int("limit"))
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to list sync runs: %s", err))
				return fmt.Errorf("failed to list sync runs: %w", err)
			}

			if len(runs) == 0 {
				utils.PrintInfo("No sync runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := color.GreenString("ok")
				if !run.Success {
					status = color.RedString("failed")
				}
				rows = append(rows, []string{
					run.CompletedAt.Format("2006-01-02 15:04"),
					fmt.Sprintf("%d", run.Pulled),
					fmt.Sprintf("%d", run.Pushed),
					fmt.Sprintf("%d", run.Skipped),
					fmt.Sprintf("%d", run.ErrorCount),
					status,
				})
			}

			utils.PrintTable(
				[]string{"Completed", "Pulled", "Pushed", "Skipped", "Errors", "Status"},
				rows,
				utils.TableOptions{Title: "Sync History"},
			)
			return nil
		},
	}
}
