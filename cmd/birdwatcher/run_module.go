package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/birdwatcher/internal/console"
)

func newRunModuleCmd(a *app) *cobra.Command {
	var (
		sets       []string
		configFile string
	)
	cmd := &cobra.Command{
		Use:   "run-module PATH",
		Short: "Run a single module and exit",
		Long: `Runs one module without starting the interactive prompt. Option values come
from --config-file (a YAML mapping of option names to values) and --set
flags, which take precedence.

Example:
  birdwatcher run-module reporting/csv --set DEST=users.csv \
    --set "QUERY=SELECT screen_name, followers_count FROM users"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			settings, err := moduleSettings(configFile, sets)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			c, err := console.Bootstrap(ctx, newRegistry(), console.Options{
				Config:    a.cfg,
				Workspace: a.workspace,
				Out:       cmd.OutOrStdout(),
				Reader:    console.NewScannerReader(strings.NewReader(""), nil),
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, c.Close())
			}()
			if !c.RunModule(args[0], settings) {
				return fmt.Errorf("module %s failed", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "module option `KEY=VALUE` (repeatable)")
	cmd.Flags().StringVar(&configFile, "config-file", "", "YAML `FILE` with module option values")
	return cmd
}

// moduleSettings merges option values from configFile with the KEY=VALUE
// overrides in sets.
func moduleSettings(configFile string, sets []string) (map[string]string, error) {
	settings := map[string]string{}
	if path := strings.TrimSpace(configFile); path != "" {
		fromFile, err := readSettingsFile(path)
		if err != nil {
			return nil, err
		}
		for key, value := range fromFile {
			settings[key] = value
		}
	}
	for _, pair := range sets {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("option name is empty in %q", pair)
		}
		settings[key] = value
	}
	return settings, nil
}

func readSettingsFile(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	settings := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			settings[key] = ""
		case string:
			settings[key] = v
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: option %s must be a scalar", path, key)
		default:
			settings[key] = fmt.Sprint(v)
		}
	}
	return settings, nil
}
