package main

import (
	"github.com/jamesainslie/modloader/pkg/modloader/cache"
	"github.com/jamesainslie/modloader/pkg/modloader/history"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/jamesainslie/modloader/pkg/modloader/output"
	"github.com/jamesainslie/modloader/pkg/modloader/patch"
	"github.com/spf13/cobra"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Make the game executable load mods",
	Long: `Inspect or change the patch state of SonicGenerations.exe or slw.exe.

Installing rewrites the import the game uses to load its archives so that
it goes through the mod loader instead. The untouched executable is kept
next to it with a _Backup suffix the first time it is patched.`,
}

var patchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the executable is patched",
	Args:  cobra.NoArgs,
	RunE:  runPatchStatus,
}

var patchInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Patch the executable",
	Args:  cobra.NoArgs,
	RunE:  runPatchInstall,
}

var patchUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Restore the original import",
	Args:  cobra.NoArgs,
	RunE:  runPatchUninstall,
}

var patchToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Install when unpatched, uninstall when patched",
	Args:  cobra.NoArgs,
	RunE:  runPatchToggle,
}

var patchCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List or clear remembered signature offsets",
	Args:  cobra.NoArgs,
	RunE:  runPatchCache,
}

var cacheClear bool

func init() {
	patchCacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "forget every remembered offset")

	patchCmd.AddCommand(patchStatusCmd, patchInstallCmd, patchUninstallCmd, patchToggleCmd, patchCacheCmd)
	rootCmd.AddCommand(patchCmd)
}

// newEngine returns a patch engine for the configured game directory,
// backed by the offset cache when it is enabled and can be opened.
func newEngine() (*patch.Engine, func()) {
	if !cfg.Cache.Enabled {
		return patch.New(cfg.GameDir), func() {}
	}

	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logging.Get("cli").Warn("offset cache unavailable", "path", cfg.Cache.Path, "error", err)
		return patch.New(cfg.GameDir), func() {}
	}
	return patch.New(cfg.GameDir, patch.WithCache(c)), func() {
		if err := c.Close(); err != nil {
			logging.Get("cli").Warn("failed to close offset cache", "error", err)
		}
	}
}

func runPatchStatus(cmd *cobra.Command, args []string) error {
	engine, closeEngine := newEngine()
	defer closeEngine()

	target, err := engine.Target()
	if err != nil {
		return err
	}
	state, err := engine.Status()
	if err != nil {
		return err
	}

	label := output.PatchStyle(state.String()).Render(state.String())
	printInfo("%s: %s (%s)", target.Game(), label, target.Path)
	return nil
}

func runPatchInstall(cmd *cobra.Command, args []string) error {
	return applyPatch(history.OpInstall, (*patch.Engine).Install)
}

func runPatchUninstall(cmd *cobra.Command, args []string) error {
	return applyPatch(history.OpUninstall, (*patch.Engine).Uninstall)
}

func applyPatch(op history.OperationType, apply func(*patch.Engine) (patch.Outcome, error)) error {
	engine, closeEngine := newEngine()
	defer closeEngine()

	target, err := engine.Target()
	if err != nil {
		return err
	}
	outcome, err := apply(engine)
	if err != nil {
		return err
	}

	if outcome == patch.Applied {
		recordPatch(op, target.Path, outcome.String())
	}

	switch {
	case outcome == patch.AlreadyApplied && op == history.OpInstall:
		printInfo("%s is already patched", target.Game())
	case outcome == patch.AlreadyApplied:
		printInfo("%s is not patched", target.Game())
	case op == history.OpInstall:
		printInfo("Patched %s", target.Path)
	default:
		printInfo("Unpatched %s", target.Path)
	}
	return nil
}

func runPatchToggle(cmd *cobra.Command, args []string) error {
	engine, closeEngine := newEngine()
	defer closeEngine()

	target, err := engine.Target()
	if err != nil {
		return err
	}
	state, err := engine.Toggle()
	if err != nil {
		return err
	}

	op := history.OpUninstall
	if state == patch.Patched {
		op = history.OpInstall
	}
	recordPatch(op, target.Path, patch.Applied.String())

	printInfo("%s is now %s", target.Game(), output.PatchStyle(state.String()).Render(state.String()))
	return nil
}

func recordPatch(op history.OperationType, path, result string) {
	j := openJournal()
	if j == nil {
		return
	}
	if _, err := j.LogPatch(op, path, result); err != nil {
		logging.Get("cli").Warn("failed to record history", "error", err)
	}
}

func runPatchCache(cmd *cobra.Command, args []string) error {
	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer c.Close()

	if cacheClear {
		if err := c.Clear(); err != nil {
			return err
		}
		printInfo("Cleared offset cache at %s", cfg.Cache.Path)
		return nil
	}

	paths, err := c.Paths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		printInfo("No offsets remembered.")
		return nil
	}
	for _, p := range paths {
		printInfo("%s", p)
	}
	return nil
}
