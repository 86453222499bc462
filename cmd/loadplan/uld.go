package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cargo_loadplan/internal/uld"
)

var uldCmd = &cobra.Command{
	Use:   "uld",
	Short: "Expand and re-render ULD section notation",
}

var uldExpandCmd = &cobra.Command{
	Use:   "expand <section>",
	Short: "Expand a section such as \"XX 02PMC 03AKE XX\" into units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sec := uld.ParseSection(args[0])
		return printJSON(cmd, map[string]any{
			"count":          sec.Count,
			"types":          sec.Types,
			"expanded_types": sec.ExpandedTypes,
			"labels":         sec.Labels(),
		})
	},
}

var uldFormatCmd = &cobra.Command{
	Use:   "format <section> [uld-number...]",
	Short: "Re-render a section counting only filled ULD numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), uld.FormatSection(args[1:], args[0]))
		return err
	},
}
