package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/modloader/pkg/modloader/footprint"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/output"
	"github.com/jamesainslie/modloader/pkg/modloader/registry"
	"github.com/jamesainslie/modloader/pkg/modloader/trash"
	"github.com/jamesainslie/modloader/pkg/modloader/watcher"
	"github.com/spf13/cobra"
)

var modsCmd = &cobra.Command{
	Use:   "mods",
	Short: "List, activate and order mods",
	Long: `List the mods in the mods folder and change which of them are active.

The active list is ordered: mods earlier in the list load first. Every
change is written to ModsDB.ini in the mods folder immediately.`,
}

var modsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List mods, active first in load order",
	Args:    cobra.NoArgs,
	RunE:    runModsList,
}

var modsInfoCmd = &cobra.Command{
	Use:   "info <title>",
	Short: "Show the details of one mod",
	Args:  cobra.ExactArgs(1),
	RunE:  runModsInfo,
}

var modsEnableCmd = &cobra.Command{
	Use:   "enable <title>...",
	Short: "Activate mods, appending them to the load order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModsEnable,
}

var modsDisableCmd = &cobra.Command{
	Use:   "disable <title>...",
	Short: "Deactivate mods",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModsDisable,
}

var modsUpCmd = &cobra.Command{
	Use:   "up <title>",
	Short: "Move an active mod one place earlier in the load order",
	Args:  cobra.ExactArgs(1),
	RunE:  runModsUp,
}

var modsDownCmd = &cobra.Command{
	Use:   "down <title>",
	Short: "Move an active mod one place later in the load order",
	Args:  cobra.ExactArgs(1),
	RunE:  runModsDown,
}

var modsSelectCmd = &cobra.Command{
	Use:   "select [title]...",
	Short: "Replace the active list with the given mods, in order",
	RunE:  runModsSelect,
}

var modsRemoveCmd = &cobra.Command{
	Use:     "remove <title>",
	Aliases: []string{"rm"},
	Short:   "Delete a mod's folder",
	Long: `Delete a mod's folder and drop it from the active list.

The folder is moved to the desktop trash when a trash tool (gio or
trash-put) is available, unless --permanent is given or trash is disabled
in the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: runModsRemove,
}

var modsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Deactivate all mods",
	Args:  cobra.NoArgs,
	RunE:  runModsReset,
}

var (
	removeYes       bool
	removePermanent bool
)

func init() {
	addListFlags(modsListCmd)
	modsRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "do not ask for confirmation")
	modsRemoveCmd.Flags().BoolVar(&removePermanent, "permanent", false, "delete instead of moving to the trash")

	modsCmd.AddCommand(modsListCmd, modsInfoCmd, modsEnableCmd, modsDisableCmd,
		modsUpCmd, modsDownCmd, modsSelectCmd, modsRemoveCmd, modsResetCmd)
	rootCmd.AddCommand(modsCmd)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("size", false, "measure the disk usage of every mod")
	cmd.Flags().Bool("watch", false, "keep running and redraw when the mods folder changes")
	cmd.Flags().StringP("template", "t", "", "Go template for output (implies -o template)")
}

// openRegistry loads the mods and the active order of the configured root.
func openRegistry() (*registry.Registry, error) {
	r, err := registry.LoadAll(cfg.ResolvedModsDir())
	if errors.Is(err, registry.ErrCorruptDatabase) {
		return nil, fmt.Errorf("%w (run 'modloader mods reset' or 'modloader mods select' to rewrite it)", err)
	}
	return r, err
}

// mutate loads the registry, applies fn and saves the result.
func mutate(fn func(r *registry.Registry) error) (*registry.Registry, error) {
	r, err := openRegistry()
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := saveRegistry(r); err != nil {
		return nil, err
	}
	return r, nil
}

// replace discovers the mods without reading the stored active order, applies
// fn and saves the result. Commands that set the whole active list use it so
// that a corrupt database can be overwritten.
func replace(fn func(r *registry.Registry) error) (*registry.Registry, error) {
	r, err := registry.Discover(cfg.ResolvedModsDir())
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := saveRegistry(r); err != nil {
		return nil, err
	}
	return r, nil
}

func saveRegistry(r *registry.Registry) error {
	if err := r.Save(r.DatabasePath()); err != nil {
		return err
	}
	if j := openJournal(); j != nil {
		if _, err := j.LogSave(r.DatabasePath(), r.ActiveOrder()); err != nil {
			logging.Get("cli").Warn("failed to record history", "error", err)
		}
	}
	return nil
}

// requireMod fails with registry.ErrUnknownMod for titles that match nothing.
func requireMod(r *registry.Registry, title string) error {
	if _, ok := r.Mod(title); !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownMod, title)
	}
	return nil
}

func runModsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	measure, _ := cmd.Flags().GetBool("size")
	watch, _ := cmd.Flags().GetBool("watch")
	tmpl, _ := cmd.Flags().GetString("template")

	formatter, err := selectFormatter(tmpl)
	if err != nil {
		return err
	}

	if err := renderList(ctx, formatter, measure); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	var renderErr error
	err = watcher.Watch(ctx, cfg.ResolvedModsDir(), func(change watcher.Change) {
		logging.Get("cli").Debug("mods folder changed", "paths", change.Paths)
		if err := renderList(ctx, formatter, measure); err != nil {
			printError("%v", err)
			renderErr = err
		}
	})
	if errors.Is(err, context.Canceled) {
		return renderErr
	}
	return err
}

// selectFormatter returns the template formatter for a non-empty tmpl and
// the configured formatter otherwise.
func selectFormatter(tmpl string) (output.Formatter, error) {
	if tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}
	formatter, err := output.Get(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(output.Available(), ", "))
	}
	return formatter, nil
}

func renderList(ctx context.Context, formatter output.Formatter, measure bool) error {
	res, err := buildResult(ctx, measure)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = stdout.Write(buf.Bytes())
	return err
}

// buildResult loads the registry and gathers everything the formatters show.
// Warnings logged while loading are carried into the result.
func buildResult(ctx context.Context, measure bool) (*output.Result, error) {
	entries := logging.Subscribe()
	r, err := openRegistry()
	logging.Unsubscribe(entries)
	if err != nil {
		return nil, err
	}

	res := &output.Result{
		ModsRoot: r.Root(),
		Mods:     output.FromEntries(r.Display()),
		Warnings: drainWarnings(entries),
	}

	engine, closeEngine := newEngine()
	defer closeEngine()
	if target, err := engine.Target(); err == nil {
		res.Game = target.Game()
		if state, err := engine.Status(); err == nil {
			res.Patch = state.String()
		} else {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	if measure {
		dirs := make([]string, len(res.Mods))
		for i, m := range res.Mods {
			dirs[i] = m.Directory
		}
		usage, err := footprint.MeasureAll(ctx, dirs)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		for i := range res.Mods {
			if u, ok := usage[res.Mods[i].Directory]; ok {
				res.Mods[i].SetUsage(u.Bytes, u.Files)
			}
		}
	}

	return res, nil
}

// drainWarnings collects the warnings already published on entries.
func drainWarnings(entries <-chan logging.LogEntry) []string {
	var warnings []string
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return warnings
			}
			if e.Level >= logging.LevelWarn {
				warnings = append(warnings, e.Message)
			}
		default:
			return warnings
		}
	}
}

func runModsInfo(cmd *cobra.Command, args []string) error {
	r, err := openRegistry()
	if err != nil {
		return err
	}
	title := args[0]
	if err := requireMod(r, title); err != nil {
		return err
	}

	var info output.ModInfo
	for _, row := range output.FromEntries(r.Display()) {
		if row.Title == title {
			info = row
			break
		}
	}

	usage, err := footprint.Measure(cmd.Context(), info.Directory)
	if err != nil {
		logging.Get("cli").Warn("failed to measure mod", "dir", info.Directory, "error", err)
	} else {
		info.SetUsage(usage.Bytes, usage.Files)
	}

	switch cfg.Output {
	case "pretty", "plain":
	default:
		return renderList(cmd.Context(), singleFormatter{info: info}, false)
	}

	status := "inactive"
	if info.Active {
		status = fmt.Sprintf("active, load position %s of %d", info.PriorityLabel(), r.ActiveCount())
	}

	fmt.Fprintf(stdout, "Title:       %s\n", info.Title)
	fmt.Fprintf(stdout, "Status:      %s\n", status)
	printField("Version", info.Version)
	printField("Author", info.Author)
	printField("Date", info.Date)
	printField("URL", info.URL)
	printField("Updates", info.UpdateServer)
	printField("Save file", info.SaveFile)
	fmt.Fprintf(stdout, "Directory:   %s\n", info.Directory)
	if err == nil {
		fmt.Fprintf(stdout, "Size:        %s (%d archives)\n", usage, usage.Archives)
	}
	if info.Description != "" {
		fmt.Fprintf(stdout, "\n%s\n", info.Description)
	}
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	label += ":"
	fmt.Fprintf(stdout, "%-12s %s\n", label, value)
}

// singleFormatter narrows a result to one mod before handing it to the
// configured formatter.
type singleFormatter struct {
	info output.ModInfo
}

func (f singleFormatter) Format(w *bytes.Buffer, r *output.Result) error {
	inner, err := output.Get(cfg.Output)
	if err != nil {
		return err
	}
	one := *r
	one.Mods = []output.ModInfo{f.info}
	return inner.Format(w, &one)
}

func runModsEnable(cmd *cobra.Command, args []string) error {
	r, err := mutate(func(r *registry.Registry) error {
		for _, title := range args {
			if err := r.Activate(title); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	printInfo("%d of %d mods active", r.ActiveCount(), r.Len())
	return nil
}

func runModsDisable(cmd *cobra.Command, args []string) error {
	r, err := mutate(func(r *registry.Registry) error {
		for _, title := range args {
			if err := r.Deactivate(title); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	printInfo("%d of %d mods active", r.ActiveCount(), r.Len())
	return nil
}

func runModsUp(cmd *cobra.Command, args []string) error {
	return reorder(args[0], (*registry.Registry).ReorderUp)
}

func runModsDown(cmd *cobra.Command, args []string) error {
	return reorder(args[0], (*registry.Registry).ReorderDown)
}

func reorder(title string, move func(*registry.Registry, string)) error {
	r, err := mutate(func(r *registry.Registry) error {
		if err := requireMod(r, title); err != nil {
			return err
		}
		if !r.IsActive(title) {
			return fmt.Errorf("%q is not active", title)
		}
		move(r, title)
		return nil
	})
	if err != nil {
		return err
	}
	printInfo("Load order: %s", strings.Join(r.ActiveOrder(), ", "))
	return nil
}

func runModsSelect(cmd *cobra.Command, args []string) error {
	r, err := replace(func(r *registry.Registry) error {
		return r.ApplySelection(args)
	})
	if err != nil {
		return err
	}
	printInfo("%d of %d mods active", r.ActiveCount(), r.Len())
	return nil
}

func runModsReset(cmd *cobra.Command, args []string) error {
	r, err := replace(func(r *registry.Registry) error {
		r.DeactivateAll()
		return nil
	})
	if err != nil {
		return err
	}
	printInfo("Deactivated all %d mods", r.Len())
	return nil
}

func runModsRemove(cmd *cobra.Command, args []string) error {
	title := args[0]
	r, err := openRegistry()
	if err != nil {
		return err
	}
	m, ok := r.Mod(title)
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownMod, title)
	}

	if !removeYes && !confirm(fmt.Sprintf("Remove %q and delete %s?", title, m.RootDirectory)) {
		printInfo("Aborted.")
		return nil
	}

	remover := trash.New(removePermanent || !cfg.Trash)
	var method trash.Method
	err = r.Remove(title, func(path string) error {
		var err error
		method, err = remover.Remove(cmd.Context(), path)
		return err
	})
	if err != nil {
		return err
	}

	if j := openJournal(); j != nil {
		if _, err := j.LogRemove(m.RootDirectory, title, string(method)); err != nil {
			logging.Get("cli").Warn("failed to record history", "error", err)
		}
	}
	if err := saveRegistry(r); err != nil {
		return err
	}

	printInfo("Removed %s (%s)", title, method)
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(question string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", question)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
