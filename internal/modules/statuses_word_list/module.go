package statuses_word_list

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

const modulePath = "statuses/word_list"

var metadata = plugin.ModuleMetadata{
	Name:        "Word List",
	Description: "Generates a word list from statuses",
	Author:      "Birdwatcher maintainers",
	Info: `The Word List module generates a word list from the statuses of all or
specific users in the workspace.

Users post about their hobbies, interests and work, which makes such a list
effective for password auditing.`,
	Options: []plugin.OptionSpec{
		{Key: "DEST", Description: "Destination file", Required: true},
		{Key: "USERS", Description: "Space-separated list of screen names (all users if empty)"},
		{Key: "MIN_WORD_COUNT", Default: 3, Description: "Exclude words mentioned fewer times than specified"},
		{Key: "MIN_WORD_LENGTH", Default: 6, Description: "Exclude words smaller than specified"},
		{Key: "EXCLUDE_STOPWORDS", Default: true, Description: "Exclude english stopwords", Boolean: true},
		{Key: "EXCLUDE_WORDS", Description: "Space-separated list of words to exclude"},
		{Key: "EXCLUDE_HASHTAGS", Default: true, Description: "Exclude hashtags", Boolean: true},
		{Key: "EXCLUDE_MENTIONS", Default: true, Description: "Exclude @username mentions", Boolean: true},
		{Key: "INCLUDE_PAGE_TITLES", Default: false, Description: "Include page titles of shared URLs (requires urls/crawl)", Boolean: true},
		{Key: "WORD_CAP", Description: "Cap list of words to specified amount"},
		{Key: "INCLUDE_COUNT", Default: false, Description: "Include the count with the words", Boolean: true},
	},
}

// WordListModule writes the most used words of a workspace to a file.
type WordListModule struct{}

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
func New() *WordListModule {
	return &WordListModule{}
}

type settings struct {
	dest         string
	users        []string
	filter       Filter
	pageTitles   bool
	includeCount bool
}

// Run builds the word list and writes it to DEST.
func (m *WordListModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	ws := ctx.Workspace()
	if ws == nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("No workspace selected")
	}
	cfg, err := readSettings(ctx.Options)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	statuses, err := ctx.Store.Statuses(ctx.Ctx(), ws.ID, cfg.users, 0)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	if len(statuses) == 0 {
		return plugin.Result{Status: plugin.StatusFailed, Message: "There are no statuses to process"}, nil
	}

	list := NewWordList(cfg.filter)
	err = ctx.Out.Task("Processing "+ctx.Out.Bold(fmt.Sprint(len(statuses)))+" statuses...", false, func() error {
		return m.fill(ctx, ws, cfg, list, statuses)
	})
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.ErrReported
	}
	words := list.Words()
	err = ctx.Out.Task(fmt.Sprintf("Writing %s to file...", english.Plural(len(words), "word", "words")), false, func() error {
		return writeWords(cfg.dest, words, cfg.includeCount)
	})
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.ErrReported
	}
	info, err := os.Stat(cfg.dest)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	return plugin.Completed("Wrote %s to %s", humanize.Bytes(uint64(info.Size())), ctx.Out.Bold(cfg.dest)), nil
}

func (m *WordListModule) fill(ctx *plugin.ModuleContext, ws *store.Workspace, cfg settings, list *WordList, statuses []store.Status) error {
	for _, st := range statuses {
		list.Add(st.Text)
	}
	if !cfg.pageTitles {
		return nil
	}
	titles, err := ctx.Store.SharedPageTitles(ctx.Ctx(), ws.ID, cfg.users)
	if err != nil {
		return err
	}
	for _, title := range titles {
		list.Add(title)
	}
	return nil
}

func writeWords(path string, words []Word, includeCount bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("word_list: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, word := range words {
		if includeCount {
			fmt.Fprintf(w, "%s, %d\n", word.Text, word.Count)
		} else {
			fmt.Fprintln(w, word.Text)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("word_list: write %s: %w", path, err)
	}
	return f.Close()
}

func readSettings(opts *plugin.Options) (settings, error) {
	var (
		cfg      settings
		firstErr error
	)
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	num := func(key string) int {
		n, err := opts.Int(key)
		keep(err)
		return n
	}
	flag := func(key string) bool {
		b, err := opts.Bool(key)
		keep(err)
		return b
	}
	words := func(key string) []string {
		w, err := opts.Words(key)
		keep(err)
		return w
	}

	dest, err := opts.String("DEST")
	keep(err)
	cfg.users = words("USERS")
	cfg.filter = Filter{
		MinCount:         num("MIN_WORD_COUNT"),
		MinLength:        num("MIN_WORD_LENGTH"),
		Cap:              num("WORD_CAP"),
		ExcludeWords:     words("EXCLUDE_WORDS"),
		ExcludeStopwords: flag("EXCLUDE_STOPWORDS"),
		ExcludeHashtags:  flag("EXCLUDE_HASHTAGS"),
		ExcludeMentions:  flag("EXCLUDE_MENTIONS"),
	}
	cfg.pageTitles = flag("INCLUDE_PAGE_TITLES")
	cfg.includeCount = flag("INCLUDE_COUNT")
	if firstErr != nil {
		return settings{}, plugin.Failf("%v", firstErr)
	}
	if cfg.dest, err = plugin.ExpandPath(dest); err != nil {
		return settings{}, err
	}
	return cfg, nil
}
