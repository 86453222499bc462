package main

import (
	"github.com/spf13/cobra"

	"cargo_loadplan/internal/loadplan"
)

var traceLines bool

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse a load plan and print header and shipments as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&traceLines, "trace", false, "Print the per-line classification instead")
}

func runParse(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	if traceLines {
		return printJSON(cmd, loadplan.Trace(content))
	}
	return printJSON(cmd, loadplan.NewParser(log, nil).Parse(content))
}
