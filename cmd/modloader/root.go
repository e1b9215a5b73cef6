package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/modloader/pkg/modloader/config"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// cfg is loaded before every command runs.
	cfg *config.Config

	quiet bool

	// Replaced in tests.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin

	rootCmd = &cobra.Command{
		Use:   "modloader",
		Short: "Manage mods for Sonic Generations and Sonic Lost World",
		Long: `modloader discovers the mods in the game's mods folder, keeps the ordered
list of active mods in ModsDB.ini, and patches the game executable so that
it loads them.

Running modloader without a command lists the mods.

Examples:
  modloader                          # List mods, active first
  modloader -g ~/games/gens enable "Classic HUD"
  modloader up "Classic HUD"         # Load earlier than its predecessor
  modloader patch install            # Make the game load mods
  modloader -o json                  # Machine-readable list
  modloader history                  # View operation history`,
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  initialize,
		PersistentPostRunE: shutdown,
		RunE:               runModsList,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/modloader/config.yaml)")
	flags.StringP("game-dir", "g", "", "directory containing the game executable")
	flags.StringP("mods-dir", "m", "", "mods directory (default: <game-dir>/mods)")
	flags.StringP("output", "o", "", "output format (pretty, plain, json, jsonl, yaml, tsv, csv, markdown, titles, null)")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.BoolP("verbose", "v", false, "debug output on stderr")

	addListFlags(rootCmd)
}

// settings builds a fresh viper instance bound to the persistent flags.
func settings(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	_ = v.BindPFlag("game_dir", flags.Lookup("game-dir"))
	_ = v.BindPFlag("mods_dir", flags.Lookup("mods-dir"))
	_ = v.BindPFlag("output", flags.Lookup("output"))
	_ = v.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	return v
}

// initialize loads the configuration and starts logging.
func initialize(cmd *cobra.Command, args []string) error {
	v := settings(cmd)
	loaded, err := config.LoadInto(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	quiet = v.GetBool("quiet")
	return initializeLogging(cfg, v.GetBool("verbose"), quiet)
}

func shutdown(cmd *cobra.Command, args []string) error {
	return logging.Close()
}

// Execute runs the root command. Errors are reported on stderr as one line.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError("%v", err)
		_ = logging.Close()
	}
	return err
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(stdout, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
}
