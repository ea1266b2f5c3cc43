package users_import

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/collect"
	"github.com/kingrea/birdwatcher/internal/output"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

const modulePath = "users/import"

var metadata = plugin.ModuleMetadata{
	Name:        "User Importer",
	Description: "Import users from a file containing screen names",
	Author:      "Birdwatcher maintainers",
	Info: `The User Importer module adds a large number of users to the current
workspace by reading a file of screen names.

The file must contain one screen name per line, without the @ sign or a
profile URL in front of it. Users already in the workspace are skipped.`,
	Options: []plugin.OptionSpec{
		{Key: "FILE", Description: "File to read screen names from", Required: true},
		{Key: "THREADS", Description: "The number of concurrent threads (configured default if empty)"},
	},
}

// ImportModule reads screen names from a file and imports each profile.
type ImportModule struct {
	added   atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// Register installs the module factory into the provided registry.
func Register(reg *plugin.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegisterModule(modulePath, metadata, func() plugin.Module {
		return New()
	})
}

// New constructs the module.
func New() *ImportModule {
	return &ImportModule{}
}

// Run imports every screen name in FILE through the worker pool.
func (m *ImportModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	ws := ctx.Workspace()
	if ws == nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("No workspace selected")
	}
	file, err := ctx.Options.String("FILE")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	threads, err := ctx.Options.Int("THREADS")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("%v", err)
	}
	names, err := readScreenNames(file)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	if len(names) == 0 {
		return plugin.NoOp("File %s contains no screen names", file), nil
	}

	p := ctx.Pool(threads)
	for _, name := range names {
		if err := p.Submit(func() { m.importOne(ctx, ws, name) }); err != nil {
			p.Shutdown()
			return plugin.Result{Status: plugin.StatusFailed}, fmt.Errorf("users/import: submit %s: %w", name, err)
		}
	}
	p.Shutdown()

	ctx.Log().Info("users imported",
		zap.Int64("added", m.added.Load()),
		zap.Int64("skipped", m.skipped.Load()),
		zap.Int64("failed", m.failed.Load()),
	)
	return plugin.Completed("Imported %d of %d users (%d already present, %d failed)",
		m.added.Load(), len(names), m.skipped.Load(), m.failed.Load()), nil
}

func (m *ImportModule) importOne(ctx *plugin.ModuleContext, ws *store.Workspace, name string) {
	out := ctx.Out
	if _, err := ctx.Store.UserByScreenName(ctx.Ctx(), ws.ID, name); err == nil {
		m.skipped.Add(1)
		out.Info("User " + out.Bold(name) + " is already in the workspace")
		return
	}
	if _, err := collect.ImportUser(ctx.Ctx(), ctx.Social, ctx.Store, ws.ID, name); err != nil {
		m.failed.Add(1)
		if errors.Is(err, social.ErrUserNotFound) {
			out.Error("There is no user with screen name: " + out.Bold(name))
			return
		}
		out.Error(output.Describe(err))
		return
	}
	m.added.Add(1)
	out.Info("Added " + out.Bold(name) + " to workspace")
}

// readScreenNames returns the unique non-empty lines of path.
func readScreenNames(path string) ([]string, error) {
	path, err := plugin.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, plugin.Failf("File %s does not exist", path)
	}
	if err != nil {
		return nil, plugin.Failf("File %s is not readable", path)
	}
	defer f.Close()

	seen := map[string]bool{}
	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "@")
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("users/import: read %s: %w", path, err)
	}
	return names, nil
}
