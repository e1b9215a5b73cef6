package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/modloader/pkg/modloader/config"
	"github.com/jamesainslie/modloader/pkg/modloader/history"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of saves, patches and removals.

Every change to ModsDB.ini, every patch install or uninstall and every
removed mod is recorded in the journal.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd, historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openJournal returns the configured journal, or nil when history is
// disabled or unusable.
func openJournal() *history.Journal {
	if !cfg.History.Enabled {
		return nil
	}
	j, err := history.New(cfg.History.Path)
	if err != nil {
		logging.Get("cli").Warn("history unavailable", "path", cfg.History.Path, "error", err)
		return nil
	}
	return j
}

func journal() (*history.Journal, error) {
	j, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return j, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		return nil
	}

	fmt.Fprintf(stdout, "%-36s  %-14s  %-9s  %-12s  %s\n", "ID", "WHEN", "OPERATION", "RESULT", "TARGET")
	fmt.Fprintln(stdout, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(stdout, "%-36s  %-14s  %-9s  %-12s  %s\n",
			e.ID,
			humanize.Time(e.Timestamp),
			e.Operation,
			truncateString(e.Result, 12),
			e.Target,
		)
	}
	fmt.Fprintln(stdout, strings.Repeat("-", 100))
	printInfo("Use 'modloader history show <id>' for details on a specific entry.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}

	e, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Fprintf(stdout, "ID:         %s\n", e.ID)
	fmt.Fprintf(stdout, "Timestamp:  %s\n", e.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(stdout, "Operation:  %s\n", e.Operation)
	fmt.Fprintf(stdout, "Target:     %s\n", e.Target)
	if e.Result != "" {
		fmt.Fprintf(stdout, "Result:     %s\n", e.Result)
	}
	if len(e.Mods) > 0 {
		fmt.Fprintln(stdout, "\nMods:")
		for i, title := range e.Mods {
			fmt.Fprintf(stdout, "  %3d  %s\n", i+1, title)
		}
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	removed, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d entries older than %d days.", removed, retentionDays)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
