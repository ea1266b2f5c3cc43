package commands

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kingrea/birdwatcher/internal/plugin"
)

// maxSuggestions bounds the "did you mean" list for unknown module paths.
const maxSuggestions = 3

var useMeta = plugin.CommandMetadata{
	Description: "Load specified module",
	Names:       []string{"use", "load"},
	Usage:       "use MODULE_PATH",
	DetailedUsage: `The use command loads a module so its options can be set and it can be run.

USAGE:

Load a module:
  use MODULE_PATH

Module paths are listed by the module list command.`,
}

type use struct{}

func (u *use) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a module path")
	}
	path := args[0]
	desc, ok := ctx.Registry.FindModule(path)
	if !ok {
		ctx.Out.Error("Unknown module: " + ctx.Out.Bold(path))
		if suggestions := suggestModules(ctx.Registry, path); len(suggestions) > 0 {
			ctx.Out.Output(ctx.Out.Muted("    Did you mean: " + strings.Join(suggestions, ", ") + "?"))
		}
		return plugin.ErrReported
	}
	ctx.Console.UseModule(desc)
	return nil
}

func suggestModules(reg *plugin.Registry, path string) []string {
	paths := reg.ModulePaths()
	matches := fuzzy.Find(strings.ToLower(path), paths)
	var out []string
	for _, match := range matches {
		out = append(out, match.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

var backMeta = plugin.CommandMetadata{
	Description: "Unload current module",
	Names:       []string{"back", "unload"},
	Usage:       "back",
}

type back struct{}

func (b *back) Run(ctx *plugin.Context, _ []string) error {
	ctx.Console.UnloadModule()
	return nil
}

var setMeta = plugin.CommandMetadata{
	Description: "Set module option",
	Names:       []string{"set"},
	Usage:       "set OPTION VALUE",
	DetailedUsage: `The set command sets an option on the loaded module. Everything after the
option name is used as the value.

Boolean options accept 1, true, yes and on as true and 0, false, no and
off as false.

USAGE:

Set a module option:
  set OPTION VALUE`,
}

type set struct{}

func (s *set) Run(ctx *plugin.Context, args []string) error {
	if len(args) < 2 {
		return plugin.Failf("You must provide an option name and value")
	}
	desc, err := activeModule(ctx)
	if err != nil {
		return err
	}
	if err := desc.Options.Set(args[0], strings.Join(args[1:], " ")); err != nil {
		return plugin.Failf("%s", err.Error())
	}
	return nil
}

var unsetMeta = plugin.CommandMetadata{
	Description: "Unset module option",
	Names:       []string{"unset"},
	Usage:       "unset OPTION",
}

type unset struct{}

func (u *unset) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide an option name")
	}
	desc, err := activeModule(ctx)
	if err != nil {
		return err
	}
	if err := desc.Options.Unset(args[0]); err != nil {
		return plugin.Failf("%s", err.Error())
	}
	return nil
}

var showMeta = plugin.CommandMetadata{
	Description: "Show module information and options",
	Names:       []string{"show"},
	Usage:       "show DETAILS",
	DetailedUsage: `The show command displays information about the loaded module.

USAGE:

Show module information:
  show info

Show module options:
  show options`,
}

type show struct{}

func (s *show) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must specify what to see")
	}
	desc, err := activeModule(ctx)
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "info", "description", "details":
		moduleDetails(ctx, desc)
	case "options", "opts":
		showOptions(ctx, desc)
	default:
		return plugin.Failf("Don't know how to show %s", args[0])
	}
	return nil
}

func showOptions(ctx *plugin.Context, desc *plugin.ModuleDescriptor) {
	if desc.Options.Len() == 0 {
		ctx.Out.Info("This module has no options")
		return
	}
	var rows [][]string
	for _, row := range desc.Options.Snapshot() {
		rows = append(rows, []string{
			row.Spec.Key,
			plugin.FormatOptionValue(row.Value),
			yesNo(row.Spec.Required),
			row.Spec.Description,
		})
	}
	ctx.Out.Newline()
	ctx.Out.Table([]string{"Name", "Current Setting", "Required", "Description"}, rows)
	ctx.Out.Newline()
}

var runMeta = plugin.CommandMetadata{
	Description: "Run current module",
	Names:       []string{"run", "execute"},
	Usage:       "run",
}

type run struct{}

func (r *run) Run(ctx *plugin.Context, _ []string) error {
	desc, err := activeModule(ctx)
	if err != nil {
		return err
	}
	if !plugin.ExecuteModule(ctx, desc) {
		return plugin.ErrReported
	}
	return nil
}

var moduleMeta = plugin.CommandMetadata{
	Description: "Show modules",
	Names:       []string{"module", "modules"},
	Usage:       "module ACTION",
	DetailedUsage: `The module command lists, searches and describes modules.

USAGE:

List all modules:
  module list

Show information about a module:
  module info MODULE_PATH

Search for modules:
  module search TERM`,
}

type module struct{}

func (m *module) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		m.list(ctx, "Available modules:", ctx.Registry.Modules())
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "list", "-l":
		m.list(ctx, "Available modules:", ctx.Registry.Modules())
	case "show", "info", "view":
		if len(args) < 2 {
			return plugin.Failf("You must provide a module path")
		}
		return m.info(ctx, args[1])
	case "search", "-s":
		term := strings.Join(args[1:], " ")
		if term == "" {
			return plugin.Failf("You must provide a search term")
		}
		found := ctx.Registry.SearchModules(term)
		if len(found) == 0 {
			ctx.Out.Info("No modules found with search: " + ctx.Out.Bold(term))
			return nil
		}
		m.list(ctx, "Module search results:", found)
	default:
		return m.info(ctx, args[0])
	}
	return nil
}

func (m *module) info(ctx *plugin.Context, path string) error {
	desc, ok := ctx.Registry.FindModule(path)
	if !ok {
		return plugin.Failf("Unknown module: %s", path)
	}
	moduleDetails(ctx, desc)
	return nil
}

func (m *module) list(ctx *plugin.Context, title string, mods []*plugin.ModuleDescriptor) {
	ctx.Out.Info(title)
	ctx.Out.Newline()
	rows := make([][]string, 0, len(mods))
	for _, desc := range mods {
		rows = append(rows, []string{desc.Path, desc.Metadata.Name, desc.Metadata.Description})
	}
	ctx.Out.Table([]string{"Path", "Name", "Description"}, rows)
	ctx.Out.Newline()
}
