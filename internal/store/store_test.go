package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bw.db")
	ctx := context.Background()
	first, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = first.EnsureDefaultWorkspace(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()
	workspaces, err := second.Workspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, DefaultWorkspaceName, workspaces[0].Name)
	assert.Equal(t, DefaultWorkspaceDescription, workspaces[0].Description)
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INTEGER);\n", extractUpMigration(content))
	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}

func TestWorkspaceLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ws, err := s.CreateWorkspace(ctx, "acme", "Acme investigation")
	require.NoError(t, err)

	_, err = s.CreateWorkspace(ctx, "ACME", "")
	assert.True(t, errors.Is(err, ErrExists), "names are unique ignoring case: %v", err)

	found, err := s.WorkspaceByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, found.ID)

	require.NoError(t, s.RenameWorkspace(ctx, ws.ID, "globex"))
	_, err = s.WorkspaceByName(ctx, "acme")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteWorkspace(ctx, ws.ID))
	assert.True(t, errors.Is(s.DeleteWorkspace(ctx, ws.ID), ErrNotFound))
}

func TestSaveUserUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, err := s.EnsureDefaultWorkspace(ctx)
	require.NoError(t, err)

	joined := time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)
	first, err := s.SaveUser(ctx, ws.ID, User{ScreenName: "@Alice", Name: "Alice", Followers: 10, JoinedAt: joined})
	require.NoError(t, err)
	second, err := s.SaveUser(ctx, ws.ID, User{ScreenName: "alice", Name: "Alice A.", Followers: 11, Verified: true})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice", second.ScreenName)
	assert.Equal(t, "Alice A.", second.Name)
	assert.EqualValues(t, 11, second.Followers)
	assert.True(t, second.Verified)
	assert.Equal(t, joined, first.JoinedAt)

	users, err := s.Users(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, ws.ID, "ALICE"))
	_, err = s.UserByScreenName(ctx, ws.ID, "alice")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatusesAndSharedURLs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws, err := s.EnsureDefaultWorkspace(ctx)
	require.NoError(t, err)
	alice, err := s.SaveUser(ctx, ws.ID, User{ScreenName: "alice"})
	require.NoError(t, err)
	bob, err := s.SaveUser(ctx, ws.ID, User{ScreenName: "bob"})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.SaveStatus(ctx, ws.ID, alice.ID, Status{RemoteID: "1", Text: "Read https://a.example", PostedAt: base, URLs: []string{"https://a.example"}})
	require.NoError(t, err)
	_, err = s.SaveStatus(ctx, ws.ID, bob.ID, Status{RemoteID: "2", Text: "Also https://a.example and https://b.example", PostedAt: base.Add(time.Hour), URLs: []string{"https://a.example", "https://b.example"}})
	require.NoError(t, err)
	// duplicate remote ids are ignored
	_, err = s.SaveStatus(ctx, ws.ID, bob.ID, Status{RemoteID: "2", Text: "Also https://a.example and https://b.example", URLs: []string{"https://a.example"}})
	require.NoError(t, err)

	statuses, err := s.Statuses(ctx, ws.ID, nil, 0)
	require.NoError(t, err)
	got := make([]string, 0, len(statuses))
	for _, st := range statuses {
		got = append(got, st.ScreenName+":"+st.RemoteID)
	}
	if diff := cmp.Diff([]string{"bob:2", "alice:1"}, got); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	onlyAlice, err := s.Statuses(ctx, ws.ID, []string{"ALICE"}, 0)
	require.NoError(t, err)
	require.Len(t, onlyAlice, 1)

	matches, err := s.SearchStatuses(ctx, ws.ID, "also", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "2", matches[0].RemoteID)

	shared, err := s.MostSharedURLs(ctx, ws.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "https://a.example", shared[0].URL.URL)
	assert.Equal(t, 2, shared[0].Shares)

	pending, err := s.URLs(ctx, ws.ID, UncrawledURLs)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NoError(t, s.UpdateURLCrawl(ctx, pending[0].ID, CrawlResult{
		FinalURL: "https://a.example/home", HTTPStatus: 200, ContentType: "text/html", Title: "A",
	}))
	pending, err = s.URLs(ctx, ws.ID, UncrawledURLs)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	titles, err := s.SharedPageTitles(ctx, ws.ID, []string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles)
	all, err := s.URLs(ctx, ws.ID, AllURLs)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Crawled())
	assert.Equal(t, 200, all[0].HTTPStatus)

	require.NoError(t, s.UpdateURLCrawl(ctx, pending[0].ID, CrawlResult{}))
	pending, err = s.URLs(ctx, ws.ID, UncrawledURLs)
	require.NoError(t, err)
	assert.Empty(t, pending)
	retry, err := s.URLs(ctx, ws.ID, UncrawledOrFailedURLs)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, "https://b.example", retry[0].URL)
}

func TestQueryAndSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.EnsureDefaultWorkspace(ctx)
	require.NoError(t, err)

	result, err := s.Query(ctx, "SELECT name, description, NULL AS nothing FROM workspaces")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "description", "nothing"}, result.Columns)
	assert.Equal(t, [][]string{{"default", "Default workspace", ""}}, result.Strings())

	_, err = s.Query(ctx, "SELEC nope")
	assert.Error(t, err)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "users")
	assert.Contains(t, tables, "schema_migrations")

	table, err := s.Schema(ctx, "WORKSPACES")
	require.NoError(t, err)
	assert.Equal(t, "workspaces", table.Name)
	require.NotEmpty(t, table.Columns)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.True(t, table.Columns[0].PrimaryKey)

	_, err = s.Schema(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
