// Command loadplan parses cargo load plan text dumps and renders the special
// cargo, VUN and QRT reports.
//
// Usage:
//
//	loadplan parse ek0205.txt [--trace] [--pretty]
//	loadplan report ek0205.txt --kind special_cargo --format csv [-o out.csv]
//	loadplan import ek0205.txt
//	loadplan uld expand "XX 02PMC 03AKE XX"
//	loadplan uld format "XX 02PMC 03AKE XX" PMC1 "" AKE1
//
// A file argument of "-" reads standard input. Configuration comes from
// .env, LOADPLAN_CONFIG and the environment; flags override it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cargo_loadplan/internal/config"
	"cargo_loadplan/internal/logger"
)

var (
	cfg      *config.Config
	log      logger.Logger
	logLevel string
	pretty   bool
)

var rootCmd = &cobra.Command{
	Use:           "loadplan",
	Short:         "Parse cargo load plans and generate reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		log = logger.New(logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Indent JSON output")

	uldCmd.AddCommand(uldExpandCmd)
	uldCmd.AddCommand(uldFormatCmd)

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(uldCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readInput reads a load plan from a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := marshalJSON(v, pretty)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
