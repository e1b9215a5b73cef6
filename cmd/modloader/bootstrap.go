package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/modloader/pkg/modloader/config"
	"github.com/jamesainslie/modloader/pkg/modloader/logging"
)

// initializeLogging starts file logging from cfg. Verbose adds debug output
// on stderr; quiet suppresses console output entirely.
func initializeLogging(cfg *config.Config, verbose, quiet bool) error {
	console := cfg.Logging.Console
	switch {
	case quiet:
		console = ""
	case verbose:
		console = "debug"
	}

	err := logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: console,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// parseRotationConfig converts the configured rotation settings. An empty or
// invalid max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	out.MaxAge = rc.MaxAge
	out.MaxBackups = rc.MaxBackups
	out.Daily = rc.Daily

	if size, err := parseSize(rc.MaxSize); err == nil && size > 0 {
		out.MaxSize = size
	}
	return out
}

// parseSize reads sizes such as "10MB", "1G" or "512KiB". Units are binary:
// "10MB" is ten mebibytes.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "IB"):
	case strings.HasSuffix(upper, "KB"), strings.HasSuffix(upper, "MB"),
		strings.HasSuffix(upper, "GB"), strings.HasSuffix(upper, "TB"):
		s = s[:len(s)-1] + "iB"
	case strings.HasSuffix(upper, "K"), strings.HasSuffix(upper, "M"),
		strings.HasSuffix(upper, "G"), strings.HasSuffix(upper, "T"):
		s += "iB"
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}
