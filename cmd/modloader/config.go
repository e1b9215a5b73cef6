package main

import (
	"fmt"

	"github.com/jamesainslie/modloader/pkg/modloader/config"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage modloader configuration settings.

Configuration is loaded from $XDG_CONFIG_HOME/modloader/config.yaml
(~/.config/modloader/config.yaml by default).

Environment variables override config file settings using the MODLOADER_ prefix:
  MODLOADER_GAME_DIR=~/games/gens
  MODLOADER_OUTPUT=json
  MODLOADER_HISTORY_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configView is the YAML shape of the effective configuration.
type configView struct {
	GameDir string `yaml:"game_dir"`
	ModsDir string `yaml:"mods_dir"`
	Output  string `yaml:"output"`
	Trash   bool   `yaml:"trash"`
	History struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"history"`
	Cache struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"cache"`
	Update struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"update"`
	Logging struct {
		Level      string            `yaml:"level"`
		Path       string            `yaml:"path"`
		MaxSize    string            `yaml:"max_size"`
		Components map[string]string `yaml:"components,omitempty"`
	} `yaml:"logging"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	var view configView
	view.GameDir = cfg.GameDir
	view.ModsDir = cfg.ResolvedModsDir()
	view.Output = cfg.Output
	view.Trash = cfg.Trash
	view.History.Enabled = cfg.History.Enabled
	view.History.Path = cfg.History.Path
	view.History.RetentionDays = cfg.History.RetentionDays
	view.Cache.Enabled = cfg.Cache.Enabled
	view.Cache.Path = cfg.Cache.Path
	view.Update.Timeout = cfg.Update.Timeout.String()
	view.Logging.Level = cfg.Logging.Level
	view.Logging.Path = cfg.Logging.Path
	if view.Logging.Path == "" {
		view.Logging.Path = logging.DefaultLogPath()
	}
	view.Logging.MaxSize = cfg.Logging.Rotation.MaxSize
	view.Logging.Components = cfg.Logging.Components

	data, err := yaml.Marshal(&view)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Fprint(stdout, string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.ConfigFile()
	}

	created, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if !created {
		printInfo("Configuration file already exists: %s", path)
		return nil
	}
	printInfo("Created configuration file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		fmt.Fprintln(stdout, cfgFile)
		return nil
	}
	fmt.Fprintln(stdout, config.ConfigFile())
	return nil
}
