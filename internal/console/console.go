// Package console implements the interactive prompt: it reads lines,
// dispatches them to registered commands and owns the session state those
// commands operate on.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/config"
	"github.com/kingrea/birdwatcher/internal/httpclient"
	"github.com/kingrea/birdwatcher/internal/output"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

// Version is reported in the banner.
var Version = "1.0.0"

// Options configures Bootstrap.
type Options struct {
	// Home is the configuration directory. Ignored when Config is set.
	Home   string
	Config *config.Config
	// Workspace selects (creating if needed) a workspace other than the
	// default one.
	Workspace string

	In     io.Reader
	Out    io.Writer
	Reader LineReader
	Social social.Client
	Logger *zap.Logger
	Exit   func(int)
	Banner bool
}

// Console dispatches input lines to commands.
type Console struct {
	out      *output.Output
	registry *plugin.Registry
	store    *store.Store
	cfg      *config.Config
	social   social.Client
	logger   *zap.Logger

	reader    LineReader
	history   *History
	session   *Session
	sessionID string

	baseMu  sync.RWMutex
	base    context.Context
	exiting atomic.Bool
}

// Bootstrap loads configuration, opens the store and selects the starting
// workspace. Failures are reported as fatal tasks.
func Bootstrap(ctx context.Context, reg *plugin.Registry, opts Options) (*Console, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	out := output.New(opts.Out, output.WithExit(exit), output.WithLogger(logger))
	sessionID := uuid.NewString()
	c := &Console{
		out:       out,
		registry:  reg,
		cfg:       opts.Config,
		social:    opts.Social,
		logger:    logger.With(zap.String("session", sessionID)),
		session:   &Session{},
		sessionID: sessionID,
		base:      ctx,
	}
	if opts.Banner {
		c.printBanner()
	}

	if c.cfg == nil {
		err := out.Task("Loading configuration...", true, func() error {
			if err := config.InitHome(opts.Home); err != nil {
				return err
			}
			cfg, err := config.Load(opts.Home)
			c.cfg = cfg
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	err := out.Task("Preparing database...", true, func() error {
		st, err := store.Open(ctx, c.cfg.DatabasePath())
		if err != nil {
			return err
		}
		c.store = st
		ws, err := st.EnsureDefaultWorkspace(ctx)
		if err != nil {
			return err
		}
		c.session.Workspace = ws
		return nil
	})
	if err != nil {
		c.closeStore()
		return nil, err
	}

	if name := strings.TrimSpace(opts.Workspace); name != "" {
		if err := c.selectStartWorkspace(ctx, name); err != nil {
			c.closeStore()
			return nil, err
		}
	}

	if c.social == nil {
		hc, err := httpclient.New(httpclient.Options{
			Timeout:    c.cfg.Settings.HTTP.Timeout,
			Retries:    c.cfg.Settings.HTTP.Retries,
			UserAgents: c.cfg.Settings.HTTP.UserAgents,
			Logger:     c.logger,
		})
		if err != nil {
			c.closeStore()
			return nil, err
		}
		c.social = social.NewHTTPClient(c.cfg.Settings.Social.BaseURL, c.cfg.Settings.Social.BearerToken, hc)
	}

	c.history = NewHistory(c.cfg.HistoryPath())
	if err := c.history.Load(); err != nil {
		out.Warn("Cannot load command history: " + err.Error())
	}

	c.reader = opts.Reader
	if c.reader == nil {
		in := opts.In
		if in == nil {
			in = os.Stdin
		}
		term := opts.Out
		if term == nil {
			term = os.Stdout
		}
		c.reader = NewReader(in, term, c.history, reg.Completions())
	}
	out.Newline()
	c.logger.Info("console started",
		zap.String("home", c.cfg.HomeDir),
		zap.String("workspace", c.Workspace().Name),
	)
	return c, nil
}

func (c *Console) selectStartWorkspace(ctx context.Context, name string) error {
	ws, err := c.store.WorkspaceByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		ws, err = c.store.CreateWorkspace(ctx, name, "")
		if err == nil {
			c.out.Info("Created workspace " + c.out.Bold(ws.Name))
		}
	}
	if err != nil {
		return fmt.Errorf("console: select workspace %s: %w", name, err)
	}
	c.session.Workspace = ws
	return nil
}

// Output returns the console's output layer.
func (c *Console) Output() *output.Output {
	return c.out
}

// SessionID identifies this console run in the logs.
func (c *Console) SessionID() string {
	return c.sessionID
}

// Store returns the open store.
func (c *Console) Store() *store.Store {
	return c.store
}

// Prompt renders the prompt for the current session state.
func (c *Console) Prompt() string {
	styles := c.out.Styles()
	ws := "?"
	if current := c.Workspace(); current != nil {
		ws = current.Name
	}
	prompt := styles.Bold.Render("birdwatcher[") + ws + styles.Bold.Render("]")
	if mod := c.ActiveModule(); mod != nil {
		return prompt + styles.Bold.Render("[") + styles.Error.Render(mod.Path) + styles.Bold.Render("]> ")
	}
	return prompt + styles.Bold.Render("> ")
}

// HandleInput dispatches one input line. The command name ends at the first
// whitespace run. It returns false both when no command has that name and
// when the command ran but failed; the two are told apart by the output.
func (c *Console) HandleInput(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if err := c.history.Add(line); err != nil {
		c.out.Warn("Cannot save command to history: " + err.Error())
	}
	c.out.Mirror(line + "\n")

	name, argumentLine := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		name, argumentLine = line[:i], line[i:]
	}
	desc, ok := c.registry.FindCommand(name)
	if !ok {
		c.out.Error("Unknown command: " + c.out.Bold(name))
		c.logger.Debug("unknown command", zap.String("command", name))
		return false
	}
	return plugin.ExecuteCommand(c.pluginContext(), desc, strings.TrimSpace(argumentLine))
}

// Run reads and dispatches lines until input ends, a command asks the
// console to exit or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	c.baseMu.Lock()
	c.base = ctx
	c.baseMu.Unlock()

	for !c.exiting.Load() {
		prompt := c.Prompt()
		line, err := c.reader.ReadLine(ctx, prompt)
		if errors.Is(err, io.EOF) {
			c.out.Newline()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("console: read input: %w", err)
		}
		c.out.Mirror(prompt)
		c.HandleInput(line)
	}
	return nil
}

// Confirm asks a yes/no question. Only "y" and "yes" confirm.
func (c *Console) Confirm(question string) bool {
	question += " (y/n) "
	c.out.Mirror(question)
	answer, err := c.reader.ReadLine(c.context(), question)
	answer = strings.ToLower(strings.TrimSpace(answer))
	if err == nil && (answer == "y" || answer == "yes") {
		c.out.Mirror("y\n")
		return true
	}
	c.out.Mirror("n\n")
	return false
}

// Exit makes Run return after the current command.
func (c *Console) Exit() {
	c.exiting.Store(true)
}

// Exiting reports whether Exit was called.
func (c *Console) Exiting() bool {
	return c.exiting.Load()
}

// RunResource dispatches every command in the file at path. Empty lines and
// lines starting with # or // are skipped.
func (c *Console) RunResource(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("console: open resource: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() && !c.exiting.Load() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		c.HandleInput(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console: read resource %s: %w", path, err)
	}
	return nil
}

// RunModule applies settings to the module at path, activates it and runs it
// once. Input history is left untouched.
func (c *Console) RunModule(path string, settings map[string]string) bool {
	desc, ok := c.registry.FindModule(path)
	if !ok {
		c.out.Error("Unknown module: " + c.out.Bold(path))
		return false
	}
	for _, key := range slices.Sorted(maps.Keys(settings)) {
		if err := desc.Options.Set(key, settings[key]); err != nil {
			c.out.Error(err.Error())
			return false
		}
	}
	c.UseModule(desc)
	return plugin.ExecuteModule(c.pluginContext(), desc)
}

// Close stops spooling and releases the reader and the store.
func (c *Console) Close() error {
	var errs []error
	if err := c.StopSpool(); err != nil {
		errs = append(errs, err)
	}
	if c.reader != nil {
		if err := c.reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
		c.store = nil
	}
	return errors.Join(errs...)
}

func (c *Console) closeStore() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

func (c *Console) context() context.Context {
	c.baseMu.RLock()
	defer c.baseMu.RUnlock()
	if c.base == nil {
		return context.Background()
	}
	return c.base
}

func (c *Console) pluginContext() *plugin.Context {
	return &plugin.Context{
		Base:     c.context(),
		Console:  c,
		Out:      c.out,
		Registry: c.registry,
		Store:    c.store,
		Social:   c.social,
		Config:   c.cfg,
		Logger:   c.logger,
	}
}

func (c *Console) printBanner() {
	styles := c.out.Styles()
	art := " ___ _        _             _      _\n" +
		"| _ |_)_ _ __| |_ __ ____ _| |_ __| |_  ___ _ _\n" +
		"| _ \\ | '_/ _` \\ V  V / _` |  _/ _| ' \\/ -_) '_|\n" +
		"|___/_|_| \\__,_|\\_/\\_/\\__,_|\\__\\__|_||_\\___|_|"
	c.out.Output(styles.Info.Render(art))
	c.out.Output(fmt.Sprintf("%23sv%s", "", Version))
}
