package urls_most_shared

import (
	"strconv"

	"github.com/kingrea/birdwatcher/internal/plugin"
)

const (
	modulePath      = "urls/most_shared"
	defaultMinShare = 2
)

var metadata = plugin.ModuleMetadata{
	Name:        "Most Shared URLs",
	Description: "Lists shared URLs ordered from most to least shared",
	Author:      "Birdwatcher maintainers",
	Info: `The Most Shared URLs module lists shared URLs ordered from most to least
shared. A URL shared by several people is a good indication that it holds
important or interesting information.

Run the urls/crawl module first to include HTTP status codes, content types
and page titles in the listing.`,
	Options: []plugin.OptionSpec{
		{Key: "USERS", Description: "Space-separated list of screen names (all users if empty)"},
		{Key: "MIN_SHARE_COUNT", Default: defaultMinShare, Description: "Exclude URLs shared fewer times than specified"},
	},
}

// MostSharedModule prints a ranking of shared URLs.
type MostSharedModule struct{}

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
func New() *MostSharedModule {
	return &MostSharedModule{}
}

// Run prints the URLs shared at least MIN_SHARE_COUNT times.
func (m *MostSharedModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	ws := ctx.Workspace()
	if ws == nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("No workspace selected")
	}
	users, err := ctx.Options.Words("USERS")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	minShares, err := ctx.Options.Int("MIN_SHARE_COUNT")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("%v", err)
	}
	if minShares < 1 {
		minShares = 1
	}
	shared, err := ctx.Store.MostSharedURLs(ctx.Ctx(), ws.ID, users, minShares)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	if len(shared) == 0 {
		return plugin.Result{Status: plugin.StatusFailed, Message: "There are no URLs to display"}, nil
	}

	rows := make([][]string, 0, len(shared))
	for _, s := range shared {
		status := ""
		if s.HTTPStatus != 0 {
			status = strconv.Itoa(s.HTTPStatus)
		}
		rows = append(rows, []string{strconv.Itoa(s.Shares), s.URL.URL, status, s.ContentType, s.Title})
	}
	ctx.Out.Newline()
	ctx.Out.Table([]string{"Shares", "URL", "Status", "Content Type", "Title"}, rows)
	ctx.Out.Newline()
	return plugin.Result{Status: plugin.StatusCompleted}, nil
}
