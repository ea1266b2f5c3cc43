package commands

import (
	"errors"
	"strings"
	"sync"

	"github.com/kingrea/birdwatcher/internal/collect"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

// statusDisplayLimit caps list and search output.
const statusDisplayLimit = 1000

var statusMeta = plugin.CommandMetadata{
	Description: "Manage statuses",
	Names:       []string{"status", "statuses"},
	Usage:       "status [ACTION]",
	DetailedUsage: `The status command fetches, lists and searches statuses posted by users in
the current workspace.

USAGE:

Fetch the latest statuses of every user, or only of the given users:
  status fetch [SCREEN_NAME ...]

List the newest statuses, optionally only from some users:
  status list [SCREEN_NAME ...]

Search statuses containing a term:
  status search TERM`,
}

type status struct{}

func (s *status) Run(ctx *plugin.Context, args []string) error {
	ws, err := requireWorkspace(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return plugin.Failf("You must provide an action")
	}
	switch strings.ToLower(args[0]) {
	case "list", "-l", "show":
		return s.list(ctx, ws, args[1:])
	case "search", "-s", "find":
		term := strings.Join(args[1:], " ")
		if term == "" {
			return plugin.Failf("You must provide a search term")
		}
		statuses, err := ctx.Store.SearchStatuses(ctx.Ctx(), ws.ID, term, statusDisplayLimit)
		if err != nil {
			return err
		}
		printStatuses(ctx, statuses)
		return nil
	case "fetch", "-f", "update", "-u":
		return s.fetch(ctx, ws, args[1:])
	default:
		return s.list(ctx, ws, args)
	}
}

func (s *status) list(ctx *plugin.Context, ws *store.Workspace, screenNames []string) error {
	statuses, err := ctx.Store.Statuses(ctx.Ctx(), ws.ID, screenNames, statusDisplayLimit)
	if err != nil {
		return err
	}
	printStatuses(ctx, statuses)
	return nil
}

func (s *status) fetch(ctx *plugin.Context, ws *store.Workspace, screenNames []string) error {
	users, err := ctx.Store.Users(ctx.Ctx(), ws.ID)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ctx.Out.Info("There are currently no users in this workspace")
		return nil
	}
	wanted := make(map[string]bool, len(screenNames))
	for _, name := range screenNames {
		wanted[strings.ToLower(strings.TrimPrefix(name, "@"))] = true
	}
	for i := range users {
		u := &users[i]
		if len(wanted) > 0 && !wanted[strings.ToLower(u.ScreenName)] {
			continue
		}
		var fetched []social.Status
		err := ctx.Out.Task("Fetching statuses for "+ctx.Out.Bold(u.ScreenName)+"...", false, func() error {
			var err error
			fetched, err = collect.Timeline(ctx.Ctx(), ctx.Social, u, 0)
			return err
		})
		if err != nil {
			continue
		}
		_ = ctx.Out.Task("Processing "+count(int64(len(fetched)), "status", "statuses")+"...", false, func() error {
			return saveStatuses(ctx, ws, u, fetched)
		})
	}
	return nil
}

func saveStatuses(ctx *plugin.Context, ws *store.Workspace, u *store.User, fetched []social.Status) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	p := ctx.Pool(0)
	for _, item := range fetched {
		record := collect.StatusRecord(item)
		if err := p.Submit(func() {
			if _, err := ctx.Store.SaveStatus(ctx.Ctx(), ws.ID, u.ID, record); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}); err != nil {
			p.Shutdown()
			return err
		}
	}
	p.Shutdown()
	return errors.Join(errs...)
}

func printStatuses(ctx *plugin.Context, statuses []store.Status) {
	if len(statuses) == 0 {
		ctx.Out.Info("There are no statuses to show")
		return
	}
	out := ctx.Out
	out.Newline()
	for i, st := range statuses {
		if i > 0 {
			out.LineSeparator()
			out.Newline()
		}
		out.Output(out.Bold("@"+st.ScreenName) + " " + out.Muted(st.PostedAt.Format("2006-01-02 15:04")))
		out.Output(st.Text)
		out.Newline()
	}
}
