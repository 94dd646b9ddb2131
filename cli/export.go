package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"timekeeper/hours"
	"timekeeper/logger"
	"timekeeper/models"
	"timekeeper/report"
	"timekeeper/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	addExportFlags(exportCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First day to include (2006-01-02)")
	cmd.Flags().String("to", "", "Last day to include (2006-01-02)")
	cmd.Flags().StringP("format", "f", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().Bool("summary", false, "Export per-client subtotals instead of one row per record")
	cmd.Flags().String("as", "", "Scope the export to what this username may see")
}

var exportCmd = &cobra.Command{
	Use:   "export timesheets|expenses",
	Short: "Export submitted and approved records",
	Long: `Export timesheets or expenses in a period as CSV or XLSX. Without --as the
export covers every employee.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"timesheets", "expenses"},
	RunE:      runExport,
}

type exportOptions struct {
	kind    string
	period  services.Period
	format  report.Format
	summary bool
	as      string
}

func runExport(cmd *cobra.Command, args []string) error {
	opts, err := exportFlags(cmd, args[0])
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if opts.format == report.FormatXLSX && out == "" {
		return fmt.Errorf("xlsx output needs --out")
	}

	cfg := setup()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	rows, err := exportReport(cmd.Context(), db, opts, w)
	if err != nil {
		return err
	}
	logger.Logger().Info().Str("kind", opts.kind).Int("rows", rows).Str("out", out).Msg("export written")
	return nil
}

func exportFlags(cmd *cobra.Command, kind string) (exportOptions, error) {
	opts := exportOptions{kind: kind}
	if kind != "timesheets" && kind != "expenses" {
		return opts, fmt.Errorf("unknown export %q: want timesheets or expenses", kind)
	}
	var err error
	for _, name := range []string{"from", "to"} {
		raw, _ := cmd.Flags().GetString(name)
		if raw == "" {
			continue
		}
		t, perr := time.Parse(hours.DateLayout, raw)
		if perr != nil {
			return opts, fmt.Errorf("--%s: %w", name, perr)
		}
		if name == "from" {
			opts.period.From = t
		} else {
			opts.period.To = t
		}
	}
	if !opts.period.From.IsZero() && !opts.period.To.IsZero() && opts.period.To.Before(opts.period.From) {
		return opts, fmt.Errorf("--to is before --from")
	}
	format, _ := cmd.Flags().GetString("format")
	if opts.format, err = report.ParseFormat(format); err != nil {
		return opts, err
	}
	opts.summary, _ = cmd.Flags().GetBool("summary")
	opts.as, _ = cmd.Flags().GetString("as")
	return opts, nil
}

// exportReport writes the sheet for opts to w and returns its row count.
func exportReport(ctx context.Context, db *gorm.DB, opts exportOptions, w io.Writer) (int, error) {
	actor, err := exportActor(ctx, db, opts.as)
	if err != nil {
		return 0, err
	}
	reports := services.NewReports(db)

	var sheet report.Sheet
	switch {
	case opts.kind == "timesheets" && opts.summary:
		groups, err := reports.TimesheetsByClient(ctx, actor, opts.period)
		if err != nil {
			return 0, err
		}
		sheet = report.SummarySheet("Timesheets by client", groups)
	case opts.kind == "timesheets":
		lines, err := reports.TimesheetLines(ctx, actor, opts.period)
		if err != nil {
			return 0, err
		}
		sheet = report.TimesheetSheet(lines)
	case opts.summary:
		groups, err := reports.ExpensesByClient(ctx, actor, opts.period)
		if err != nil {
			return 0, err
		}
		sheet = report.SummarySheet("Expenses by client", groups)
	default:
		lines, err := reports.ExpenseLines(ctx, actor, opts.period)
		if err != nil {
			return 0, err
		}
		sheet = report.ExpenseSheet(lines)
	}
	return len(sheet.Rows), report.Write(w, opts.format, sheet)
}

// exportActor resolves --as, or an unsaved admin that sees everything.
func exportActor(ctx context.Context, db *gorm.DB, username string) (*models.Employee, error) {
	if username == "" {
		return &models.Employee{Username: "system", Role: models.RoleAdmin, IsActive: true}, nil
	}
	var e models.Employee
	if err := db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&e).Error; err != nil {
		return nil, fmt.Errorf("export as %q: %w", username, err)
	}
	return &e, nil
}
