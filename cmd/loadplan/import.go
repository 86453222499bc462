package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cargo_loadplan/internal/events"
	"cargo_loadplan/internal/importer"
	"cargo_loadplan/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Parse a load plan and store it with its ULD entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Store())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	im := importer.New(store, log, nil)
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		im.OnImported(pub.ImportedHandler())
	}

	res, err := im.Import(ctx, content)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}
