// Command birdwatcher starts the interactive OSINT console. Running it
// without arguments opens the prompt; run-module executes a single module
// and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/commands"
	"github.com/kingrea/birdwatcher/internal/config"
	"github.com/kingrea/birdwatcher/internal/console"
	"github.com/kingrea/birdwatcher/internal/logging"
	"github.com/kingrea/birdwatcher/internal/modules"
	"github.com/kingrea/birdwatcher/internal/plugin"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by the root command and its subcommands.
type app struct {
	home      string
	workspace string
	resource  string
	verbose   bool
	noBanner  bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "birdwatcher",
		Short: "Birdwatcher - OSINT framework for social media",
		Long: `Birdwatcher is an interactive console for gathering and analysing public
social media data. Users, statuses and shared URLs are collected into
workspaces and processed by modules.

Run without arguments to start the console. Type "help" at the prompt for
the list of commands.`,
		Version:      console.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConsole(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.home, "home", "", "configuration directory (default $"+config.HomeEnv+" or ~/"+config.HomeDirName+")")
	flags.StringVarP(&a.workspace, "workspace", "w", "", "workspace to start in, created when missing")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "write debug entries to the log file")
	root.Flags().StringVarP(&a.resource, "resource", "r", "", "execute commands from `FILE` before showing the prompt")
	root.Flags().BoolVar(&a.noBanner, "no-banner", false, "do not print the banner on startup")

	root.AddCommand(newRunModuleCmd(a))
	return root
}

// setup loads the configuration and opens the log file.
func (a *app) setup() error {
	home := a.home
	if home == "" {
		var err error
		if home, err = config.DefaultHome(); err != nil {
			return err
		}
	}
	if err := config.InitHome(home); err != nil {
		return err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return err
	}
	level := cfg.LogLevel()
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(cfg.LogsDir(), level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) runConsole(cmd *cobra.Command) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	c, err := console.Bootstrap(ctx, newRegistry(), console.Options{
		Config:    a.cfg,
		Workspace: a.workspace,
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		Logger:    a.logger,
		Banner:    !a.noBanner,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()

	if a.resource != "" {
		path, err := plugin.ExpandPath(a.resource)
		if err != nil {
			return err
		}
		if err := c.RunResource(path); err != nil {
			c.Output().Error(fmt.Sprintf("Cannot execute resource file %s: %v", path, err))
		}
	}
	if c.Exiting() {
		return nil
	}
	return c.Run(ctx)
}

func newRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	commands.RegisterBuiltins(reg)
	modules.RegisterBuiltins(reg)
	reg.Freeze()
	return reg
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
