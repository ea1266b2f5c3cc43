package commands

import (
	"strings"

	"github.com/kingrea/birdwatcher/internal/plugin"
)

var helpMeta = plugin.CommandMetadata{
	Description: "Show help and information about a command",
	Names:       []string{"help", "?"},
	Usage:       "help [COMMAND]",
	DetailedUsage: `The help command lists every available command, or shows detailed usage
for a single command.

USAGE:

List available commands:
  help

Show detailed usage for a command:
  help COMMAND`,
}

type help struct{}

func (h *help) Run(ctx *plugin.Context, args []string) error {
	if len(args) > 0 {
		return h.command(ctx, args[0])
	}
	commands := ctx.Registry.Commands()
	width := 0
	for _, desc := range commands {
		if n := len(desc.Metadata.Usage); n > width {
			width = n
		}
	}
	ctx.Out.Info("Available commands:")
	ctx.Out.Newline()
	for _, desc := range commands {
		usage := desc.Metadata.Usage
		pad := strings.Repeat(" ", width-len(usage))
		ctx.Out.Output("    " + ctx.Out.Bold(usage) + pad + "    " + desc.Metadata.Description)
	}
	ctx.Out.Newline()
	return nil
}

func (h *help) command(ctx *plugin.Context, name string) error {
	desc, ok := ctx.Registry.FindCommand(name)
	if !ok {
		return plugin.Failf("Unknown command: %s", name)
	}
	if desc.Metadata.DetailedUsage == "" {
		ctx.Out.Info("There is no detailed usage for this command")
		return nil
	}
	ctx.Out.Newline()
	ctx.Out.Output(desc.Metadata.DetailedUsage)
	ctx.Out.Newline()
	return nil
}
