package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/birdwatcher/internal/commands"
	"github.com/kingrea/birdwatcher/internal/console"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
)

type fakeSocial struct {
	users    map[string]*social.User
	timeline map[string][]social.Status
}

func (f *fakeSocial) User(_ context.Context, screenName string) (*social.User, error) {
	u, ok := f.users[strings.ToLower(screenName)]
	if !ok {
		return nil, social.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeSocial) Timeline(_ context.Context, userID string, _ int) ([]social.Status, error) {
	return f.timeline[userID], nil
}

type echoModule struct{}

func (echoModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	dest, err := ctx.Options.String("DEST")
	if err != nil {
		return plugin.Result{}, err
	}
	headers, err := ctx.Options.Bool("HEADERS")
	if err != nil {
		return plugin.Result{}, err
	}
	return plugin.Completed("dest=%s headers=%v", dest, headers), nil
}

type harness struct {
	t       *testing.T
	console *console.Console
	buf     *bytes.Buffer
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	reg := plugin.NewRegistry()
	commands.RegisterBuiltins(reg)
	reg.MustRegisterModule("test/echo", plugin.ModuleMetadata{
		Name:        "Echo",
		Description: "Echo option values",
		Author:      "Tester",
		Options: []plugin.OptionSpec{
			{Key: "DEST", Description: "Destination", Required: true},
			{Key: "HEADERS", Description: "Include headers", Boolean: true, Default: true},
		},
	}, func() plugin.Module { return echoModule{} })
	reg.Freeze()

	client := &fakeSocial{
		users: map[string]*social.User{
			"alice": {ID: "100", ScreenName: "alice", Name: "Alice", Followers: 3, StatusesCount: 2},
		},
		timeline: map[string][]social.Status{
			"100": {
				{ID: "1", Text: "hello world", CreatedAt: time.Now().Add(-time.Hour), URLs: []string{"https://example.com/a"}},
				{ID: "2", Text: "second post", CreatedAt: time.Now()},
			},
		},
	}
	var buf bytes.Buffer
	c, err := console.Bootstrap(context.Background(), reg, console.Options{
		Home:   t.TempDir(),
		Out:    &buf,
		Reader: console.NewScannerReader(strings.NewReader(input), nil),
		Social: client,
		Exit:   func(code int) { t.Fatalf("unexpected exit %d", code) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	buf.Reset()
	return &harness{t: t, console: c, buf: &buf}
}

// do dispatches line and returns the stripped output it produced.
func (h *harness) do(line string) (string, bool) {
	h.t.Helper()
	h.buf.Reset()
	ok := h.console.HandleInput(line)
	return ansi.Strip(h.buf.String()), ok
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t, "")
	text, ok := h.do("help")
	require.True(t, ok)
	assert.Contains(t, text, "[+] Available commands:")
	assert.Contains(t, text, "use MODULE_PATH")
	assert.Contains(t, text, "Execute SQL query")

	text, ok = h.do("? set")
	require.True(t, ok)
	assert.Contains(t, text, "Boolean options accept")

	text, ok = h.do("help back")
	require.True(t, ok)
	assert.Equal(t, "[+] There is no detailed usage for this command\n", text)

	text, ok = h.do("help nope")
	assert.False(t, ok)
	assert.Equal(t, "[-] Unknown command: nope\n", text)
}

func TestUseSuggestsModules(t *testing.T) {
	h := newHarness(t, "")
	text, ok := h.do("use")
	assert.False(t, ok)
	assert.Equal(t, "[-] You must provide a module path\n", text)

	text, ok = h.do("use test/ech")
	assert.False(t, ok)
	assert.Equal(t, "[-] Unknown module: test/ech\n    Did you mean: test/echo?\n", text)
	assert.Nil(t, h.console.ActiveModule())

	_, ok = h.do("LOAD test/echo")
	require.True(t, ok)
	assert.Equal(t, "test/echo", h.console.ActiveModule().Path)
	assert.Equal(t, "birdwatcher[default][test/echo]> ", ansi.Strip(h.console.Prompt()))

	_, ok = h.do("back")
	require.True(t, ok)
	assert.Nil(t, h.console.ActiveModule())
}

func TestSetShowAndRun(t *testing.T) {
	h := newHarness(t, "")

	text, ok := h.do("set DEST x")
	assert.False(t, ok)
	assert.Equal(t, "[-] No module loaded\n", text)

	text, _ = h.do("run")
	assert.Equal(t, "[-] No module loaded\n", text)

	h.do("use test/echo")
	text, ok = h.do("set dest")
	assert.False(t, ok)
	assert.Equal(t, "[-] You must provide an option name and value\n", text)

	text, ok = h.do("run")
	assert.False(t, ok)
	assert.Equal(t, "[-] Setting for required option has not been set: DEST\n", text)

	_, ok = h.do("set dest /tmp/my   report.csv")
	require.True(t, ok)
	_, ok = h.do("set headers OFF")
	require.True(t, ok)

	text, ok = h.do("set nope 1")
	assert.False(t, ok)
	assert.Equal(t, "[-] Unknown module option: NOPE\n", text)

	text, ok = h.do("show options")
	require.True(t, ok)
	assert.Contains(t, text, "Current Setting")
	assert.Contains(t, text, "/tmp/my report.csv")
	assert.Contains(t, text, "false")

	text, ok = h.do("show info")
	require.True(t, ok)
	assert.Contains(t, text, "Description: Echo option values")
	assert.Contains(t, text, "No further information has been provided for this module")

	text, ok = h.do("show nonsense")
	assert.False(t, ok)
	assert.Equal(t, "[-] Don't know how to show nonsense\n", text)

	text, ok = h.do("execute")
	require.True(t, ok)
	assert.Equal(t, "[+] dest=/tmp/my report.csv headers=false\n", text)

	_, ok = h.do("unset dest")
	require.True(t, ok)
	_, ok = h.do("run")
	assert.False(t, ok)
}

func TestModuleCommand(t *testing.T) {
	h := newHarness(t, "")
	text, ok := h.do("modules")
	require.True(t, ok)
	assert.Contains(t, text, "Available modules:")
	assert.Contains(t, text, "test/echo")

	text, ok = h.do("module search ECHO")
	require.True(t, ok)
	assert.Contains(t, text, "Module search results:")

	text, ok = h.do("module search zebra")
	require.True(t, ok)
	assert.Equal(t, "[+] No modules found with search: zebra\n", text)

	text, ok = h.do("module info test/echo")
	require.True(t, ok)
	assert.Contains(t, text, "     Author: Tester")

	_, ok = h.do("module info missing/module")
	assert.False(t, ok)
}

func TestWorkspaceLifecycle(t *testing.T) {
	h := newHarness(t, "y\n")

	text, ok := h.do("workspace")
	require.True(t, ok)
	assert.Contains(t, text, "Current workspace: default (database ID: ")

	text, ok = h.do("workspace create acme Acme corp")
	require.True(t, ok)
	assert.Equal(t, "[+] Created workspace: acme\n", text)
	assert.Equal(t, "acme", h.console.Workspace().Name)

	text, ok = h.do("workspace add ACME")
	assert.False(t, ok)
	assert.Equal(t, "[-] There is already a workspace with that name\n", text)

	text, _ = h.do("workspace rename default other")
	assert.Equal(t, "[-] Default workspace cannot be renamed\n", text)

	text, ok = h.do("workspace rename acme globex")
	require.True(t, ok)
	assert.Equal(t, "[+] Workspace acme renamed to globex\n", text)
	assert.Equal(t, "globex", h.console.Workspace().Name)

	text, ok = h.do("workspace list")
	require.True(t, ok)
	assert.Contains(t, text, "Acme corp")

	text, ok = h.do("workspace delete globex")
	require.True(t, ok)
	assert.Equal(t, "[+] Deleted workspace: globex\n", text)
	assert.Equal(t, "default", h.console.Workspace().Name)

	text, ok = h.do("workspace nothing")
	assert.False(t, ok)
	assert.Equal(t, "[-] There is no workspace with that name\n", text)
}

func TestWorkspaceDeleteDeclined(t *testing.T) {
	h := newHarness(t, "no\n")
	h.do("workspace create acme")
	text, ok := h.do("workspace delete acme")
	require.True(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, "acme", h.console.Workspace().Name)
}

func TestUsersAndStatuses(t *testing.T) {
	h := newHarness(t, "yes\n")

	text, ok := h.do("user list")
	require.True(t, ok)
	assert.Equal(t, "[+] There are currently no users in this workspace\n", text)

	text, ok = h.do("user add alice ghost alice")
	require.True(t, ok)
	assert.Equal(t, "[+] Added alice to workspace\n[-] There is no user with screen name: ghost\n", text)

	text, _ = h.do("users add alice")
	assert.Equal(t, "[-] User alice is already in the workspace\n", text)

	text, ok = h.do("user alice")
	require.True(t, ok)
	assert.Contains(t, text, "Followers: 3")

	text, ok = h.do("user update")
	require.True(t, ok)
	assert.Equal(t, "[+] Updated information for alice\n", text)

	text, ok = h.do("status fetch")
	require.True(t, ok)
	assert.Contains(t, text, "[+] Fetching statuses for alice... done\n")
	assert.Contains(t, text, "[+] Processing 2 statuses... done\n")

	text, ok = h.do("status search hello")
	require.True(t, ok)
	assert.Contains(t, text, "@alice")
	assert.Contains(t, text, "hello world")
	assert.NotContains(t, text, "second post")

	text, ok = h.do("statuses alice")
	require.True(t, ok)
	assert.Less(t, strings.Index(text, "second post"), strings.Index(text, "hello world"), "newest first")

	text, ok = h.do("query_csv SELECT url FROM urls")
	require.True(t, ok)
	assert.Equal(t, "url\nhttps://example.com/a\n", text)

	text, ok = h.do("user delete alice")
	require.True(t, ok)
	assert.Equal(t, "[+] Deleted alice from workspace\n", text)
}

func TestQueryAndSchema(t *testing.T) {
	h := newHarness(t, "")

	text, ok := h.do("csv SELECT name, description FROM workspaces")
	require.True(t, ok)
	assert.Equal(t, "name,description\ndefault,Default workspace\n", text)

	text, ok = h.do("sql SELECT name FROM workspaces")
	require.True(t, ok)
	assert.Contains(t, text, "default")

	text, ok = h.do("query SELEC nonsense")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(text, "[-] Syntax error: "), text)

	text, ok = h.do("query")
	assert.False(t, ok)
	assert.Equal(t, "[-] You must provide an SQL query to execute\n", text)

	text, ok = h.do("schema")
	require.True(t, ok)
	assert.Contains(t, text, " * workspaces")

	text, ok = h.do("table users")
	require.True(t, ok)
	assert.Contains(t, text, "Schema information for table users:")
	assert.Contains(t, text, "screen_name")

	text, ok = h.do("schema nope")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(text, "[-] Unknown table: nope\n"), text)
	assert.Contains(t, text, "Available tables:")
}

func TestSpoolCommand(t *testing.T) {
	h := newHarness(t, "")
	path := filepath.Join(t.TempDir(), "out.txt")

	text, ok := h.do("spool status")
	require.True(t, ok)
	assert.Equal(t, "[+] Output spooling is stopped\n", text)

	text, ok = h.do("spool " + path)
	require.True(t, ok)
	assert.Equal(t, "[+] Spooling output to "+path+"\n", text)

	h.do("workspace")
	text, ok = h.do("spool off")
	require.True(t, ok)
	assert.Equal(t, "[+] Output spooling stopped\n", text)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workspace\n[+] Current workspace: default")
	assert.True(t, strings.HasSuffix(string(data), "spool off\n"), string(data))
}

func TestResourceAndExit(t *testing.T) {
	h := newHarness(t, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "setup.rc")
	content := "# setup\nworkspace create acme\n// load\nuse test/echo\nset DEST out.csv\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	text, ok := h.do("resource " + path)
	require.True(t, ok)
	assert.Equal(t, "[+] Created workspace: acme\n", text)
	assert.Equal(t, "test/echo", h.console.ActiveModule().Path)

	text, ok = h.do("resource " + filepath.Join(dir, "missing.rc"))
	assert.False(t, ok)
	assert.Equal(t, fmt.Sprintf("[-] File %s does not exist\n", filepath.Join(dir, "missing.rc")), text)

	text, ok = h.do("q")
	require.True(t, ok)
	assert.Equal(t, "Goodbye.\n", text)
	assert.True(t, h.console.Exiting())
}

func TestShellCommand(t *testing.T) {
	h := newHarness(t, "")
	text, ok := h.do("shell echo hi there")
	require.True(t, ok)
	assert.Equal(t, "hi there\n", text)

	text, ok = h.do("shell exit 3")
	require.True(t, ok)
	assert.Equal(t, "[!] Command exited with status 3\n", text)

	_, ok = h.do("shell")
	assert.False(t, ok)
}
