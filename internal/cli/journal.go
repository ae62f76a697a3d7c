package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/calendar"
	"trading-journal/internal/importer"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// addJournalCommands adds the commands that read and write the trade log.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newCheckInCmd(app))
	rootCmd.AddCommand(newDeleteCmd(app))
	rootCmd.AddCommand(newImportsCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import trades from a CSV, YAML or JSON file",
		Long: `Import trades, and check-ins for YAML and JSON, into the journal.

Trades are matched on their ID, so importing the same file twice updates rather
than duplicates. Rows that cannot be read are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			logger := logging.WithOperation(logging.FromContext(ctx), "import")
			path := args[0]

			res, err := importer.Load(path, importer.Options{
				UserID:           app.UserID(),
				BreakevenEpsilon: app.Config.Engine.BreakevenEpsilon,
			})
			if err != nil {
				return err
			}
			for _, rowErr := range res.Errors {
				logger.Warn().Int("row", rowErr.Row).Str("id", rowErr.ID).Err(rowErr.Err).Msg("Row rejected")
			}

			db, err := app.Store()
			if err != nil {
				return err
			}
			if err := db.SaveTrades(ctx, res.Trades); err != nil {
				return fmt.Errorf("saving trades: %w", err)
			}
			for i := range res.CheckIns {
				if res.CheckIns[i].UserID == "" {
					res.CheckIns[i].UserID = app.UserID()
				}
				if err := db.SaveCheckIn(ctx, &res.CheckIns[i]); err != nil {
					return fmt.Errorf("saving check-in %s: %w", res.CheckIns[i].CheckDate, err)
				}
			}

			abs, _ := filepath.Abs(path)
			if err := db.RecordImport(ctx, store.ImportRecord{
				UserID:     app.UserID(),
				Path:       abs,
				Format:     string(res.Format),
				Imported:   len(res.Trades),
				Failed:     len(res.Errors),
				ImportedAt: time.Now(),
			}); err != nil {
				logger.Warn().Err(err).Msg("Failed to record import history")
			}
			logging.LogImport(logger, abs, len(res.Trades), len(res.Errors))
			for _, tag := range res.UnknownSetups() {
				logger.Debug().Str("setup", tag).Msg("Setup tag is not built in")
			}

			if output.IsJSON() {
				return output.JSON(map[string]any{
					"path":      abs,
					"format":    res.Format,
					"imported":  len(res.Trades),
					"check_ins": len(res.CheckIns),
					"errors":    rowErrorStrings(res.Errors),
				})
			}

			output.Success("Imported %d trades from %s", len(res.Trades), filepath.Base(path))
			if len(res.CheckIns) > 0 {
				output.Printf("  Check-ins: %d\n", len(res.CheckIns))
			}
			if tags := res.UnknownSetups(); len(tags) > 0 {
				output.Dim("  Setup tags shown as written: %s", strings.Join(tags, ", "))
			}
			if len(res.Errors) > 0 {
				output.Warning("%d rows skipped:", len(res.Errors))
				for _, rowErr := range res.Errors {
					output.Printf("  %s\n", rowErr.Error())
				}
			}
			return nil
		},
	}
}

func rowErrorStrings(errs []*importer.RowError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the journal to CSV, YAML or JSON",
		Long: `Export trades and check-ins. The format follows the file extension, or
--format when writing to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			format := importer.Format(flagString(cmd, "format"))
			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				if format == "" {
					f, err := importer.FormatFromPath(args[0])
					if err != nil {
						return err
					}
					format = f
				}
				file, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				defer file.Close()
				w = file
			}
			if format == "" {
				format = importer.FormatCSV
			}

			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			db, err := app.Store()
			if err != nil {
				return err
			}
			trades, err := db.GetTrades(ctx, store.TradeFilter{UserID: app.UserID(), From: from, To: to})
			if err != nil {
				return err
			}
			checkIns, err := db.GetCheckIns(ctx, store.CheckInFilter{UserID: app.UserID(), From: from, To: to})
			if err != nil {
				return err
			}
			if err := importer.Export(w, format, trades, checkIns); err != nil {
				return err
			}
			if len(args) == 1 && !output.IsJSON() {
				output.Success("Exported %d trades to %s", len(trades), args[0])
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "output format: csv, yaml or json")
	cmd.Flags().String("from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

func dateRange(cmd *cobra.Command) (calendar.Date, calendar.Date, error) {
	var from, to calendar.Date
	var err error
	if s := flagString(cmd, "from"); s != "" {
		if from, err = calendar.Parse(s); err != nil {
			return from, to, fmt.Errorf("--from: %w", err)
		}
	}
	if s := flagString(cmd, "to"); s != "" {
		if to, err = calendar.Parse(s); err != nil {
			return from, to, fmt.Errorf("--to: %w", err)
		}
	}
	return from, to, nil
}

func newCheckInCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin [date]",
		Short: "Record a daily check-in",
		Long: `Record a check-in for a day, today by default. A check-in without --traded
marks a deliberate rest day, which keeps your streak alive within the weekly
rest-day budget.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			day, err := app.Today(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if day, err = calendar.Parse(args[0]); err != nil {
					return err
				}
			}
			traded, _ := cmd.Flags().GetBool("traded")

			db, err := app.Store()
			if err != nil {
				return err
			}
			checkIn := models.CheckInRecord{UserID: app.UserID(), CheckDate: day, HasTraded: traded}
			if err := db.SaveCheckIn(ctx, &checkIn); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(checkIn)
			}
			kind := "rest day"
			if traded {
				kind = "trading day"
			}
			output.Success("Checked in %s as a %s", FormatDate(day), kind)
			return nil
		},
	}
	cmd.Flags().Bool("traded", false, "mark the day as traded")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade from the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.Store()
			if err != nil {
				return err
			}
			if err := db.DeleteTrade(cmd.Context(), app.UserID(), args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("Deleted trade %s", args[0])
			return nil
		},
	}
}

func newImportsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Show recent imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := app.Store()
			if err != nil {
				return err
			}
			history, err := db.GetImports(cmd.Context(), app.UserID(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(history)
			}
			if len(history) == 0 {
				output.Info("No imports recorded.")
				return nil
			}
			table := NewTable(output, "When", "Format", "Imported", "Failed", "File")
			for _, h := range history {
				table.AddRow(
					h.ImportedAt.Local().Format("2006-01-02 15:04"),
					h.Format,
					fmt.Sprintf("%d", h.Imported),
					fmt.Sprintf("%d", h.Failed),
					TruncateString(h.Path, 60),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "number of imports to show")
	return cmd
}
