package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"walletcheckin/pkg/checkpoint"
	"walletcheckin/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Show the checkpoint of an address list",
	Long: `Show how far the last run on an address list got: the last committed
index, when it was written and any archives of completed runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "checkpoint file (default: derived from the list name)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if len(args) > 0 {
		flags["source"] = args[0]
	}
	if checkpointPath != "" {
		flags["checkpoint"] = checkpointPath
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	store, err := checkpoint.NewManager(cfg.Checkpoint.Path, cfg.Source.Path)
	if err != nil {
		return err
	}

	ui.PrintInfo("Address list", cfg.Source.Path)
	ui.PrintInfo("Checkpoint", store.Path())

	info, err := store.Info()
	if err != nil {
		return err
	}
	if info == nil {
		ui.PrintHighlight("No run in progress; the next run starts at the first address")
	} else {
		ui.PrintInfo("Last processed index", fmt.Sprint(info["last_processed_index"]))
		ui.PrintInfo("Next address", fmt.Sprint(info["next_index"]))
		ui.PrintInfo("Written", fmt.Sprint(info["timestamp"]))
		if age, ok := info["age"].(time.Duration); ok {
			ui.PrintInfo("Age", ui.FormatDuration(age))
		}
		if total, ok := info["total"].(int); ok {
			next := info["next_index"].(int)
			ui.PrintInfo("Progress", fmt.Sprintf("[%s] %d/%d (%.0f%%)",
				ui.Bar(next, total), next, total, ui.Percent(next, total)))
		}
	}

	archives, err := store.Archives()
	if err != nil {
		return err
	}
	for _, a := range archives {
		ui.PrintInfo("Completed run", filepath.Base(a))
	}
	return nil
}
