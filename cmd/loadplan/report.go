package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cargo_loadplan/internal/api"
	"cargo_loadplan/internal/export"
	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/reports"
	"cargo_loadplan/internal/storage"
)

var (
	reportKind    string
	reportFormat  string
	reportOutput  string
	reportCarrier string
	reportTZ      string
)

var reportCmd = &cobra.Command{
	Use:   "report <file|->",
	Short: "Generate a special cargo, VUN or QRT report",
	Long: `Generates one report from a load plan. Formats are csv, tsv, xlsx and json.
The xlsx workbook always contains every report, one per sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportKind, "kind", "k", reports.KindSpecialCargo, "Report kind: "+strings.Join(reports.Kinds, ", "))
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "csv", "Output format: csv, tsv, xlsx, json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default stdout)")
	reportCmd.Flags().StringVar(&reportCarrier, "carrier", "", "Default carrier (default from DEFAULT_CARRIER)")
	reportCmd.Flags().StringVar(&reportTZ, "timezone", "", "Shift timezone (default from TIMEZONE)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if !slices.Contains(reports.Kinds, reportKind) {
		return fmt.Errorf("%w: %q", export.ErrUnknownKind, reportKind)
	}

	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	carrier := cfg.DefaultCarrier
	if reportCarrier != "" {
		carrier = reportCarrier
	}
	loc := cfg.Location()
	if reportTZ != "" {
		if loc, err = time.LoadLocation(reportTZ); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	lp := loadplan.NewParser(log, nil).Parse(content)
	bundle := reports.NewGenerator(carrier, nil).All(lp)
	exp := export.New(nil, loc)

	out := cmd.OutOrStdout()
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	format := strings.ToLower(reportFormat)
	if err := writeReport(out, exp, format, bundle); err != nil {
		return err
	}

	recordRun(cmd.Context(), lp.Header, format, exp.Shift().Name, bundle)
	return nil
}

func writeReport(out io.Writer, exp *export.Exporter, format string, b reports.Bundle) error {
	if format == "json" {
		data, err := marshalJSON(reportRows(b), pretty)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == export.XLSX {
		if reportOutput == "" {
			return fmt.Errorf("xlsx output needs --output")
		}
		return exp.WriteWorkbook(out, b)
	}
	return exp.Write(out, f, reportKind, b)
}

func reportRows(b reports.Bundle) any {
	switch reportKind {
	case reports.KindVUN:
		return b.VUN
	case reports.KindQRT:
		return b.QRT
	}
	return b.SpecialCargo
}

// recordRun stores the run in ClickHouse when configured. Failures are
// logged and do not fail the command.
func recordRun(ctx context.Context, h loadplan.Header, format, shift string, b reports.Bundle) {
	chCfg, ok := cfg.ClickHouse()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	analytics, err := storage.OpenClickHouse(ctx, chCfg)
	if err != nil {
		log.Warn("clickhouse unavailable, report run not recorded", "error", err)
		return
	}
	defer analytics.Close()

	run := api.ReportRun(h, reportKind, format, shift, b)
	if err := analytics.RecordRuns(ctx, []storage.ReportRun{run}); err != nil {
		log.Warn("record report run failed", "error", err)
	}
}
