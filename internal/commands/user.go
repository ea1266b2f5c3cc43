package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/birdwatcher/internal/collect"
	"github.com/kingrea/birdwatcher/internal/output"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

var userMeta = plugin.CommandMetadata{
	Description: "Manage users",
	Names:       []string{"user", "users"},
	Usage:       "user [ACTION]",
	DetailedUsage: `The user command adds, updates, lists and deletes users in the current
workspace.

USAGE:

List all users in the workspace:
  user list

Show details of a user:
  user SCREEN_NAME

Add one or more users:
  user add SCREEN_NAME [SCREEN_NAME ...]

Refresh user profiles (all users when no names are given):
  user update [SCREEN_NAME ...]

Delete users and their statuses:
  user delete SCREEN_NAME [SCREEN_NAME ...]`,
}

type user struct{}

func (u *user) Run(ctx *plugin.Context, args []string) error {
	ws, err := requireWorkspace(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return plugin.Failf("You must provide an action")
	}
	rest := unique(args[1:])
	switch strings.ToLower(args[0]) {
	case "list":
		return u.list(ctx, ws)
	case "create", "add", "-a":
		return u.add(ctx, ws, rest)
	case "update", "-u":
		return u.update(ctx, ws, rest)
	case "delete", "destroy", "rm", "-d":
		return u.delete(ctx, ws, rest)
	default:
		return u.details(ctx, ws, args[0])
	}
}

func (u *user) list(ctx *plugin.Context, ws *store.Workspace) error {
	users, err := ctx.Store.Users(ctx.Ctx(), ws.ID)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ctx.Out.Info("There are currently no users in this workspace")
		return nil
	}
	ctx.Out.Newline()
	for i := range users {
		if i > 0 {
			ctx.Out.LineSeparator()
			ctx.Out.Newline()
		}
		userSummary(ctx.Out, &users[i])
	}
	return nil
}

func (u *user) details(ctx *plugin.Context, ws *store.Workspace, screenName string) error {
	record, err := ctx.Store.UserByScreenName(ctx.Ctx(), ws.ID, screenName)
	if errors.Is(err, store.ErrNotFound) {
		return plugin.Failf("User %s was not found in workspace", screenName)
	}
	if err != nil {
		return err
	}
	out := ctx.Out
	out.Newline()
	rows := [][]string{
		{"Screen name", record.ScreenName},
		{"Name", record.Name},
		{"Location", record.Location},
		{"Description", record.Description},
		{"URL", record.URL},
		{"Followers", fmt.Sprint(record.Followers)},
		{"Friends", fmt.Sprint(record.Friends)},
		{"Statuses", fmt.Sprint(record.StatusesCount)},
		{"Verified", yesNo(record.Verified)},
	}
	if !record.JoinedAt.IsZero() {
		rows = append(rows, []string{"Joined", record.JoinedAt.Format("2006-01-02")})
	}
	for _, row := range rows {
		out.Output(out.Bold(fmt.Sprintf("%12s: ", row[0])) + row[1])
	}
	out.Newline()
	return nil
}

func (u *user) add(ctx *plugin.Context, ws *store.Workspace, names []string) error {
	if len(names) == 0 {
		return plugin.Failf("You must provide at least one screen name")
	}
	for _, name := range names {
		if _, err := ctx.Store.UserByScreenName(ctx.Ctx(), ws.ID, name); err == nil {
			ctx.Out.Error("User " + ctx.Out.Bold(name) + " is already in the workspace")
			continue
		}
		if _, err := collect.ImportUser(ctx.Ctx(), ctx.Social, ctx.Store, ws.ID, name); err != nil {
			reportUserError(ctx, name, err)
			continue
		}
		ctx.Out.Info("Added " + ctx.Out.Bold(name) + " to workspace")
	}
	return nil
}

func (u *user) update(ctx *plugin.Context, ws *store.Workspace, names []string) error {
	users, err := ctx.Store.Users(ctx.Ctx(), ws.ID)
	if err != nil {
		return err
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.ToLower(strings.TrimPrefix(name, "@"))] = true
	}
	p := ctx.Pool(0)
	for _, record := range users {
		if len(wanted) > 0 && !wanted[strings.ToLower(record.ScreenName)] {
			continue
		}
		screenName := record.ScreenName
		if err := p.Submit(func() {
			if _, err := collect.ImportUser(ctx.Ctx(), ctx.Social, ctx.Store, ws.ID, screenName); err != nil {
				reportUserError(ctx, screenName, err)
				return
			}
			ctx.Out.Info("Updated information for " + ctx.Out.Bold(screenName))
		}); err != nil {
			p.Shutdown()
			return err
		}
	}
	p.Shutdown()
	return nil
}

func (u *user) delete(ctx *plugin.Context, ws *store.Workspace, names []string) error {
	if len(names) == 0 {
		return plugin.Failf("You must provide at least one screen name")
	}
	bold := make([]string, len(names))
	for i, name := range names {
		bold[i] = ctx.Out.Bold(name)
	}
	if !ctx.Console.Confirm("Are you sure you want to delete " + strings.Join(bold, ", ") + " and all associated data?") {
		return nil
	}
	for _, name := range names {
		err := ctx.Store.DeleteUser(ctx.Ctx(), ws.ID, name)
		if errors.Is(err, store.ErrNotFound) {
			ctx.Out.Error("User " + ctx.Out.Bold(name) + " was not found in workspace")
			continue
		}
		if err != nil {
			return err
		}
		ctx.Out.Info("Deleted " + ctx.Out.Bold(name) + " from workspace")
	}
	return nil
}

func reportUserError(ctx *plugin.Context, screenName string, err error) {
	if errors.Is(err, social.ErrUserNotFound) {
		ctx.Out.Error("There is no user with screen name: " + ctx.Out.Bold(screenName))
		return
	}
	ctx.Out.Error(output.Describe(err))
}

func userSummary(out *output.Output, u *store.User) {
	header := out.Bold(u.Name) + " (@" + u.ScreenName + ")"
	if u.Verified {
		header += " " + out.Bold("[verified]")
	}
	out.Output(header)
	if u.Description != "" {
		out.Output(u.Description)
	}
	meta := []string{
		count(u.StatusesCount, "status", "statuses"),
		count(u.Followers, "follower", "followers"),
		count(u.Friends, "friend", "friends"),
	}
	if u.Location != "" {
		meta = append(meta, u.Location)
	}
	out.Output(out.Muted(strings.Join(meta, " | ")))
	out.Newline()
}
