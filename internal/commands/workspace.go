package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

var workspaceMeta = plugin.CommandMetadata{
	Description: "Manage workspaces",
	Names:       []string{"workspace", "workspaces"},
	Usage:       "workspace [ACTION]",
	DetailedUsage: `Workspaces keep users, statuses and URLs of separate investigations apart.

USAGE:

Show the current workspace:
  workspace

List workspaces:
  workspace list

Create a workspace and switch to it:
  workspace create NAME [DESCRIPTION]

Switch workspace:
  workspace use NAME

Rename a workspace:
  workspace rename NAME NEW_NAME

Delete a workspace and all of its data:
  workspace delete NAME`,
}

type workspace struct{}

func (w *workspace) Run(ctx *plugin.Context, args []string) error {
	current, err := requireWorkspace(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		ctx.Out.Info(fmt.Sprintf("Current workspace: %s (database ID: %s)",
			ctx.Out.Bold(current.Name), ctx.Out.Bold(fmt.Sprint(current.ID))))
		return nil
	}
	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "list":
		return w.list(ctx, current)
	case "create", "add", "-a":
		return w.create(ctx, rest)
	case "rename", "-r":
		return w.rename(ctx, current, rest)
	case "select", "use":
		if len(rest) == 0 {
			return plugin.Failf("You must provide a workspace name")
		}
		return w.selectByName(ctx, rest[0])
	case "delete", "destroy", "rm", "-d":
		return w.delete(ctx, current, rest)
	default:
		return w.selectByName(ctx, args[0])
	}
}

func (w *workspace) list(ctx *plugin.Context, current *store.Workspace) error {
	spaces, err := ctx.Store.Workspaces(ctx.Ctx())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(spaces))
	for _, ws := range spaces {
		marker := ""
		if ws.ID == current.ID {
			marker = "*"
		}
		rows = append(rows, []string{marker, ws.Name, ws.Description})
	}
	ctx.Out.Info("Available workspaces:")
	ctx.Out.Newline()
	ctx.Out.Table([]string{"", "Name", "Description"}, rows)
	ctx.Out.Newline()
	return nil
}

func (w *workspace) selectByName(ctx *plugin.Context, name string) error {
	ws, err := ctx.Store.WorkspaceByName(ctx.Ctx(), name)
	if errors.Is(err, store.ErrNotFound) {
		return plugin.Failf("There is no workspace with that name")
	}
	if err != nil {
		return err
	}
	ctx.Console.SetWorkspace(ws)
	ctx.Out.Info("Now using workspace: " + ctx.Out.Bold(ws.Name))
	return nil
}

func (w *workspace) create(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a workspace name")
	}
	ws, err := ctx.Store.CreateWorkspace(ctx.Ctx(), args[0], strings.Join(args[1:], " "))
	if errors.Is(err, store.ErrExists) {
		return plugin.Failf("There is already a workspace with that name")
	}
	if err != nil {
		return err
	}
	ctx.Out.Info("Created workspace: " + ctx.Out.Bold(ws.Name))
	ctx.Console.SetWorkspace(ws)
	return nil
}

func (w *workspace) rename(ctx *plugin.Context, current *store.Workspace, args []string) error {
	if len(args) < 2 {
		return plugin.Failf("You must provide workspace name and new name")
	}
	oldName, newName := args[0], args[1]
	if strings.EqualFold(oldName, store.DefaultWorkspaceName) {
		return plugin.Failf("Default workspace cannot be renamed")
	}
	ws, err := ctx.Store.WorkspaceByName(ctx.Ctx(), oldName)
	if errors.Is(err, store.ErrNotFound) {
		return plugin.Failf("There is no workspace named %s", oldName)
	}
	if err != nil {
		return err
	}
	err = ctx.Store.RenameWorkspace(ctx.Ctx(), ws.ID, newName)
	if errors.Is(err, store.ErrExists) {
		return plugin.Failf("There is already a workspace named %s", newName)
	}
	if err != nil {
		return err
	}
	if ws.ID == current.ID {
		renamed, err := ctx.Store.WorkspaceByName(ctx.Ctx(), newName)
		if err != nil {
			return err
		}
		ctx.Console.SetWorkspace(renamed)
	}
	ctx.Out.Info(fmt.Sprintf("Workspace %s renamed to %s", ctx.Out.Bold(oldName), ctx.Out.Bold(newName)))
	return nil
}

func (w *workspace) delete(ctx *plugin.Context, current *store.Workspace, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a workspace name")
	}
	ws, err := ctx.Store.WorkspaceByName(ctx.Ctx(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return plugin.Failf("There is no workspace with that name")
	}
	if err != nil {
		return err
	}
	if !ctx.Console.Confirm(fmt.Sprintf("Are you sure you want to delete %s and all associated data?", ctx.Out.Bold(ws.Name))) {
		return nil
	}
	if err := ctx.Store.DeleteWorkspace(ctx.Ctx(), ws.ID); err != nil {
		return err
	}
	ctx.Out.Info("Deleted workspace: " + ctx.Out.Bold(ws.Name))
	if ws.ID != current.ID && !strings.EqualFold(ws.Name, store.DefaultWorkspaceName) {
		return nil
	}
	fallback, err := ctx.Store.EnsureDefaultWorkspace(ctx.Ctx())
	if err != nil {
		return err
	}
	if ws.ID == current.ID {
		ctx.Console.SetWorkspace(fallback)
	}
	return nil
}
