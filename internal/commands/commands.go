// Package commands holds the built-in console commands.
package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

// RegisterBuiltins installs every built-in command.
func RegisterBuiltins(reg *plugin.Registry) {
	reg.MustRegisterCommand(helpMeta, func() plugin.Command { return &help{} })
	reg.MustRegisterCommand(useMeta, func() plugin.Command { return &use{} })
	reg.MustRegisterCommand(backMeta, func() plugin.Command { return &back{} })
	reg.MustRegisterCommand(setMeta, func() plugin.Command { return &set{} })
	reg.MustRegisterCommand(unsetMeta, func() plugin.Command { return &unset{} })
	reg.MustRegisterCommand(showMeta, func() plugin.Command { return &show{} })
	reg.MustRegisterCommand(runMeta, func() plugin.Command { return &run{} })
	reg.MustRegisterCommand(moduleMeta, func() plugin.Command { return &module{} })
	reg.MustRegisterCommand(workspaceMeta, func() plugin.Command { return &workspace{} })
	reg.MustRegisterCommand(userMeta, func() plugin.Command { return &user{} })
	reg.MustRegisterCommand(statusMeta, func() plugin.Command { return &status{} })
	reg.MustRegisterCommand(queryMeta, func() plugin.Command { return &query{} })
	reg.MustRegisterCommand(queryCSVMeta, func() plugin.Command { return &queryCSV{} })
	reg.MustRegisterCommand(schemaMeta, func() plugin.Command { return &schema{} })
	reg.MustRegisterCommand(resourceMeta, func() plugin.Command { return &resource{} })
	reg.MustRegisterCommand(spoolMeta, func() plugin.Command { return &spoolCommand{} })
	reg.MustRegisterCommand(shellMeta, func() plugin.Command { return &shell{} })
	reg.MustRegisterCommand(exitMeta, func() plugin.Command { return &exit{} })
}

func requireWorkspace(ctx *plugin.Context) (*store.Workspace, error) {
	ws := ctx.Workspace()
	if ws == nil {
		return nil, fmt.Errorf("commands: no workspace selected")
	}
	if ctx.Store == nil {
		return nil, fmt.Errorf("commands: store is not open")
	}
	return ws, nil
}

func activeModule(ctx *plugin.Context) (*plugin.ModuleDescriptor, error) {
	if ctx.Console == nil {
		return nil, plugin.Failf("No module loaded")
	}
	desc := ctx.Console.ActiveModule()
	if desc == nil {
		return nil, plugin.Failf("No module loaded")
	}
	return desc, nil
}

// unique drops repeated words, keeping first occurrences.
func unique(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// count renders n with thousands separators followed by the matching noun.
func count(n int64, singular, pluralForm string) string {
	return humanize.Comma(n) + " " + english.PluralWord(int(n), singular, pluralForm)
}

func moduleDetails(ctx *plugin.Context, desc *plugin.ModuleDescriptor) {
	out := ctx.Out
	meta := desc.Metadata
	out.Newline()
	out.Output(out.Bold("       Name: ") + meta.Name)
	out.Output(out.Bold("Description: ") + meta.Description)
	out.Output(out.Bold("     Author: ") + meta.Author)
	out.Output(out.Bold("       Path: ") + desc.Path)
	out.Newline()
	out.LineSeparator()
	out.Newline()
	if strings.TrimSpace(meta.Info) == "" {
		out.Info("No further information has been provided for this module")
	} else {
		out.Output(strings.TrimRight(meta.Info, "\n"))
	}
	out.Newline()
}
