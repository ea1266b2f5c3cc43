package modules_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/birdwatcher/internal/commands"
	"github.com/kingrea/birdwatcher/internal/console"
	"github.com/kingrea/birdwatcher/internal/modules"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

type fakeSocial struct {
	users map[string]*social.User
}

func (f *fakeSocial) User(_ context.Context, screenName string) (*social.User, error) {
	u, ok := f.users[strings.ToLower(screenName)]
	if !ok {
		return nil, social.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeSocial) Timeline(context.Context, string, int) ([]social.Status, error) {
	return nil, nil
}

type testConsole struct {
	t       *testing.T
	console *console.Console
	buf     *bytes.Buffer
}

func newTestConsole(t *testing.T) *testConsole {
	t.Helper()
	reg := plugin.NewRegistry()
	commands.RegisterBuiltins(reg)
	modules.RegisterBuiltins(reg)
	reg.Freeze()

	var buf bytes.Buffer
	c, err := console.Bootstrap(context.Background(), reg, console.Options{
		Home:   t.TempDir(),
		Out:    &buf,
		Reader: console.NewScannerReader(strings.NewReader(""), nil),
		Social: &fakeSocial{users: map[string]*social.User{
			"alice": {ID: "1", ScreenName: "alice", Name: "Alice"},
			"bob":   {ID: "2", ScreenName: "bob", Name: "Bob"},
		}},
		Exit: func(code int) { t.Fatalf("unexpected exit %d", code) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &testConsole{t: t, console: c, buf: &buf}
}

// run loads path, applies settings in order and runs the module. It returns
// the stripped output of the run alone.
func (tc *testConsole) run(path string, settings ...string) (string, bool) {
	tc.t.Helper()
	require.True(tc.t, tc.console.HandleInput("use "+path))
	for _, s := range settings {
		require.True(tc.t, tc.console.HandleInput("set "+s), "set %s", s)
	}
	tc.buf.Reset()
	ok := tc.console.HandleInput("run")
	return ansi.Strip(tc.buf.String()), ok
}

func (tc *testConsole) workspace() *store.Workspace {
	return tc.console.Workspace()
}

func (tc *testConsole) seedStatuses(screenName string, texts map[string]string, urls ...string) *store.User {
	tc.t.Helper()
	ctx := context.Background()
	st := tc.console.Store()
	u, err := st.SaveUser(ctx, tc.workspace().ID, store.User{ScreenName: screenName})
	require.NoError(tc.t, err)
	for id, text := range texts {
		_, err := st.SaveStatus(ctx, tc.workspace().ID, u.ID, store.Status{
			RemoteID: screenName + "-" + id,
			Text:     text,
			PostedAt: time.Now(),
			URLs:     urls,
		})
		require.NoError(tc.t, err)
	}
	return u
}

func TestRegisterBuiltins(t *testing.T) {
	reg := plugin.NewRegistry()
	modules.RegisterBuiltins(reg)
	modules.RegisterBuiltins(nil)
	want := []string{
		"reporting/csv",
		"reporting/json",
		"statuses/word_list",
		"urls/crawl",
		"urls/most_shared",
		"users/import",
	}
	if diff := cmp.Diff(want, reg.ModulePaths()); diff != "" {
		t.Fatalf("module paths mismatch (-want +got):\n%s", diff)
	}
}

func TestUsersImport(t *testing.T) {
	tc := newTestConsole(t)
	file := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(file, []byte("alice\n\n@bob\nALICE\nghost\n"), 0o600))

	text, ok := tc.run("users/import", "FILE "+file, "THREADS 2")
	require.True(t, ok, text)
	assert.Contains(t, text, "[+] Added alice to workspace\n")
	assert.Contains(t, text, "[+] Added bob to workspace\n")
	assert.Contains(t, text, "[-] There is no user with screen name: ghost\n")
	assert.True(t, strings.HasSuffix(text, "[+] Imported 2 of 3 users (0 already present, 1 failed)\n"), text)

	users, err := tc.console.Store().Users(context.Background(), tc.workspace().ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	text, ok = tc.run("users/import")
	require.True(t, ok)
	assert.Contains(t, text, "[+] User alice is already in the workspace\n")
	assert.Contains(t, text, "(2 already present, 1 failed)")
}

func TestUsersImportMissingFile(t *testing.T) {
	tc := newTestConsole(t)
	missing := filepath.Join(t.TempDir(), "nope.txt")
	text, ok := tc.run("users/import", "FILE "+missing)
	assert.False(t, ok)
	assert.Equal(t, "[-] File "+missing+" does not exist\n", text)
}

func TestUsersImportRequiresFile(t *testing.T) {
	tc := newTestConsole(t)
	text, ok := tc.run("users/import")
	assert.False(t, ok)
	assert.Equal(t, "[-] Setting for required option has not been set: FILE\n", text)
}

func TestURLsCrawl(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><head><title>Tomato &amp; Basil</title></head></html>"))
		case "/doc":
			w.Header().Set("Content-Type", "application/pdf")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	tc := newTestConsole(t)
	ctx := context.Background()
	st := tc.console.Store()
	for _, raw := range []string{ts.URL + "/page", ts.URL + "/doc", "http://127.0.0.1:1/down"} {
		_, err := st.SaveURL(ctx, tc.workspace().ID, raw)
		require.NoError(t, err)
	}

	text, ok := tc.run("urls/crawl", "RETRIES 0", "TIMEOUT 2", "THREADS 3")
	require.True(t, ok, text)
	assert.Contains(t, text, "[+] Crawled "+ts.URL+"/page (200 - text/html; charset=utf-8)\n")
	assert.Contains(t, text, "[+] Crawled "+ts.URL+"/doc (200 - application/pdf)\n")
	assert.Contains(t, text, "[-] Crawling failed for http://127.0.0.1:1/down (")
	assert.Contains(t, text, "[+] Crawled 2 of 3 URLs\n")

	all, err := st.URLs(ctx, tc.workspace().ID, store.AllURLs)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Tomato & Basil", all[0].Title)
	assert.Equal(t, 200, all[0].HTTPStatus)
	assert.Empty(t, all[1].Title)
	assert.True(t, all[2].Crawled())
	assert.Zero(t, all[2].HTTPStatus)

	text, ok = tc.run("urls/crawl")
	assert.False(t, ok)
	assert.Equal(t, "[-] There are currently no URLs in this workspace\n", text)

	text, ok = tc.run("urls/crawl", "RETRY_FAILED yes")
	require.True(t, ok)
	assert.Contains(t, text, "Crawling failed for http://127.0.0.1:1/down")
	assert.Contains(t, text, "[+] Crawled 0 of 1 URLs\n")
}

func TestURLsMostShared(t *testing.T) {
	tc := newTestConsole(t)
	text, ok := tc.run("urls/most_shared")
	assert.False(t, ok)
	assert.Equal(t, "[-] There are no URLs to display\n", text)

	tc.seedStatuses("alice", map[string]string{"1": "look", "2": "again"}, "https://a.example")
	tc.seedStatuses("bob", map[string]string{"1": "same"}, "https://a.example", "https://b.example")

	text, ok = tc.run("urls/most_shared")
	require.True(t, ok, text)
	assert.Contains(t, text, "https://a.example")
	assert.NotContains(t, text, "https://b.example")

	text, ok = tc.run("urls/most_shared", "MIN_SHARE_COUNT 1", "USERS bob")
	require.True(t, ok, text)
	assert.Contains(t, text, "https://a.example")
	assert.Contains(t, text, "https://b.example")
}

func TestReportingCSV(t *testing.T) {
	tc := newTestConsole(t)
	dest := filepath.Join(t.TempDir(), "out.csv")

	text, ok := tc.run("reporting/csv", "DEST "+dest, "QUERY SELECT name, description FROM workspaces ORDER BY id")
	require.True(t, ok, text)
	assert.Contains(t, text, "[+] Writing 1 row to file... done\n")
	assert.Contains(t, text, "[+] Wrote ")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "name,description\ndefault,Default workspace\n", string(data))

	_, ok = tc.run("reporting/csv", "HEADERS off")
	require.True(t, ok)
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "default,Default workspace\n", string(data))

	text, ok = tc.run("reporting/csv", "QUERY SELEC nothing")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(text, "[-] Syntax error: "), text)
}

func TestReportingJSON(t *testing.T) {
	tc := newTestConsole(t)
	dest := filepath.Join(t.TempDir(), "out.json")

	text, ok := tc.run("reporting/json", "DEST "+dest, "QUERY SELECT name, id, NULL AS extra FROM workspaces")
	require.True(t, ok, text)
	assert.Contains(t, text, "[+] Generating JSON... done\n")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"default","id":1,"extra":null}]`, string(data))

	_, ok = tc.run("reporting/json", "PRETTY_FORMATTING true")
	require.True(t, ok)
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	want := "[\n  {\n    \"name\": \"default\",\n    \"id\": 1,\n    \"extra\": null\n  }\n]\n"
	assert.Equal(t, want, string(data))
}

func TestStatusesWordList(t *testing.T) {
	tc := newTestConsole(t)
	dest := filepath.Join(t.TempDir(), "words.txt")

	text, ok := tc.run("statuses/word_list", "DEST "+dest)
	assert.False(t, ok)
	assert.Equal(t, "[-] There are no statuses to process\n", text)

	tc.seedStatuses("alice", map[string]string{
		"1": "Gardening tomatoes https://garden.example #gardening @gardener",
		"2": "Tomatoes again, GARDENING!",
		"3": "gardening with tomatoes because they grow",
	})
	tc.seedStatuses("bob", map[string]string{"1": "Football football football"})

	text, ok = tc.run("statuses/word_list", "MIN_WORD_COUNT 2", "MIN_WORD_LENGTH 5", "INCLUDE_COUNT yes")
	require.True(t, ok, text)
	assert.Contains(t, text, "[+] Processing 4 statuses... done\n")
	assert.Contains(t, text, "[+] Writing 3 words to file... done\n")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "football, 3\ngardening, 3\ntomatoes, 3\n", string(data))

	_, ok = tc.run("statuses/word_list", "USERS alice", "INCLUDE_COUNT no", "WORD_CAP 1", "EXCLUDE_WORDS football")
	require.True(t, ok)
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "gardening\n", string(data))
}
