package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/spinshelf/spinshelf/internal/app"
	"github.com/spinshelf/spinshelf/internal/record"
	"github.com/spinshelf/spinshelf/internal/utils"
)

// RecordsCommand returns the CLI command for browsing the local catalog
func RecordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Browse the local record catalog",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page to show",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Records per page",
				Value: 25,
			},
			&cli.BoolFlag{
				Name:  "unsynced",
				Usage: "Show only records not yet pushed to the collection",
			},
		},
		Action: listRecords,
	}
}

func listRecords(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	var records []*record.Record
	if c.Bool("unsynced") {
		records, err = application.Records.ListUnsynced(c.Context, c.Int("limit"))
	} else {
		params := record.NewPaginationParams(c.Int("page"), c.Int("limit"))
		records, err = application.Records.ListRecords(c.Context, params)
	}
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list records: %s", err))
		return fmt.Errorf("failed to list records: %w", err)
	}

	total, err := application.Records.CountRecords(c.Context)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to count records: %s", err))
		return fmt.Errorf("failed to count records: %w", err)
	}

	if len(records) == 0 {
		utils.PrintInfo("No records found. Run " + color.CyanString("spinshelf sync") + " to import your collection.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		synced := color.GreenString("yes")
		if !rec.Synced {
			synced = color.YellowString("no")
		}

		year := ""
		if rec.Year > 0 {
			year = fmt.Sprintf("%d", rec.Year)
		}

		rows = append(rows, []string{
			utils.TruncateString(rec.Artist, 30),
			utils.TruncateString(rec.Title, 40),
			year,
			utils.TruncateString(rec.Label, 20),
			strings.TrimSpace(rec.Size + " " + rec.Color),
			synced,
		})
	}

	utils.PrintTable(
		[]string{"Artist", "Title", "Year", "Label", "Pressing", "Synced"},
		rows,
		utils.TableOptions{Title: fmt.Sprintf("Catalog (%d records)", total)},
	)

	return nil
}
