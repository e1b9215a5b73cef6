package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/modloader/pkg/modloader/mod"
	"github.com/jamesainslie/modloader/pkg/modloader/update"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check mods for newer versions",
}

var updateCheckCmd = &cobra.Command{
	Use:   "check [title]...",
	Short: "Ask each mod's update server for its latest version",
	Long: `Ask each mod's update server for its latest version.

Without titles every mod that names an update server is checked. Mods
that only name a web page are reported for manual checking. Nothing is
downloaded.`,
	RunE: runUpdateCheck,
}

func init() {
	updateCmd.AddCommand(updateCheckCmd)
	rootCmd.AddCommand(updateCmd)
}

func runUpdateCheck(cmd *cobra.Command, args []string) error {
	r, err := openRegistry()
	if err != nil {
		return err
	}

	var mods []mod.Mod
	if len(args) == 0 {
		for _, m := range r.Mods() {
			if m.HasUpdateServer() {
				mods = append(mods, m)
			}
		}
	} else {
		for _, title := range args {
			if err := requireMod(r, title); err != nil {
				return err
			}
			m, _ := r.Mod(title)
			mods = append(mods, m)
		}
	}

	if len(mods) == 0 {
		printInfo("No mods with an update server.")
		return nil
	}

	checker := update.New(update.WithHTTPClient(&http.Client{Timeout: cfg.Update.Timeout}))

	results := make([]update.Result, 0, len(mods))
	var failed int
	for _, m := range mods {
		res, err := checker.Check(cmd.Context(), m)
		if err != nil {
			printError("%s: %v", m.Title, err)
			failed++
			continue
		}
		results = append(results, res)
	}

	if err := printUpdateResults(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d update checks failed", failed, len(mods))
	}
	return nil
}

func printUpdateResults(results []update.Result) error {
	switch cfg.Output {
	case "json", "jsonl":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	case "yaml":
		data, err := yaml.Marshal(results)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, string(data))
		return nil
	}

	for _, res := range results {
		switch res.Status {
		case update.Available:
			fmt.Fprintf(stdout, "%s: %s -> %s", res.Title, res.Current, res.Latest)
			if res.DownloadSize != "" {
				fmt.Fprintf(stdout, " (%s)", res.DownloadSize)
			}
			fmt.Fprintf(stdout, ", %s files\n", humanize.Comma(int64(len(res.Files))))
		case update.UpToDate:
			fmt.Fprintf(stdout, "%s: up to date (%s)\n", res.Title, res.Current)
		case update.Manual:
			fmt.Fprintf(stdout, "%s: check manually at %s\n", res.Title, res.URL)
		default:
			fmt.Fprintf(stdout, "%s: no update source\n", res.Title)
		}
	}
	return nil
}
