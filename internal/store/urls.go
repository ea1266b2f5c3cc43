package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// URL is a link shared in one or more statuses.
type URL struct {
	ID          int64
	WorkspaceID int64
	URL         string
	FinalURL    string
	HTTPStatus  int
	ContentType string
	Title       string
	CrawledAt   time.Time
}

// Crawled reports whether the URL has been visited.
func (u URL) Crawled() bool {
	return !u.CrawledAt.IsZero()
}

// CrawlResult is what a crawler learned about a URL.
type CrawlResult struct {
	FinalURL    string
	HTTPStatus  int
	ContentType string
	Title       string
}

// SharedURL is a URL with the number of statuses that shared it.
type SharedURL struct {
	URL
	Shares int
}

// SaveURL records a URL in the workspace if it is not already known.
func (s *Store) SaveURL(ctx context.Context, workspaceID int64, raw string) (*URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("store: url is required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO urls (workspace_id, url, created_at) VALUES (?, ?, ?)`,
		workspaceID, raw, toMillis(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("store: save url: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+urlColumns+` FROM urls WHERE workspace_id = ? AND url = ?`, workspaceID, raw)
	u, err := scanURL(row)
	if err != nil {
		return nil, fmt.Errorf("store: save url: %w", err)
	}
	return u, nil
}

// URLFilter selects which URLs URLs returns.
type URLFilter int

const (
	// AllURLs returns every URL.
	AllURLs URLFilter = iota
	// UncrawledURLs returns URLs that were never crawled.
	UncrawledURLs
	// UncrawledOrFailedURLs also returns URLs whose crawl produced no status.
	UncrawledOrFailedURLs
)

// URLs lists URLs in a workspace in insertion order.
func (s *Store) URLs(ctx context.Context, workspaceID int64, filter URLFilter) ([]URL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE workspace_id = ?`
	switch filter {
	case UncrawledURLs:
		query += ` AND crawled_at IS NULL`
	case UncrawledOrFailedURLs:
		query += ` AND (crawled_at IS NULL OR http_status IS NULL)`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("store: list urls: %w", err)
	}
	defer rows.Close()
	var out []URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list urls: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateURLCrawl stores the crawl outcome for a URL. A zero result marks the
// URL as crawled without a status, which UncrawledOrFailedURLs picks up again.
func (s *Store) UpdateURLCrawl(ctx context.Context, id int64, result CrawlResult) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE urls SET final_url = ?, http_status = ?, content_type = ?, title = ?, crawled_at = ?
WHERE id = ?`,
		nullString(result.FinalURL), nullInt(result.HTTPStatus), nullString(result.ContentType),
		nullString(result.Title), toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("store: update url crawl: %w", err)
	}
	return expectAffected(res, "url")
}

// MostSharedURLs lists URLs shared at least minShares times, most shared
// first. A non-empty screenNames restricts counting to those users.
func (s *Store) MostSharedURLs(ctx context.Context, workspaceID int64, screenNames []string, minShares int) ([]SharedURL, error) {
	query := `SELECT u.id, u.workspace_id, u.url, u.final_url, u.http_status, u.content_type, u.title, u.crawled_at,
	COUNT(su.status_id) AS shares
FROM urls u
INNER JOIN statuses_urls su ON su.url_id = u.id
INNER JOIN statuses s ON s.id = su.status_id
INNER JOIN users us ON us.id = s.user_id
WHERE u.workspace_id = ?`
	args := []any{workspaceID}
	if len(screenNames) > 0 {
		query += ` AND us.screen_name IN (` + placeholders(len(screenNames)) + `)`
		for _, name := range screenNames {
			args = append(args, strings.TrimPrefix(name, "@"))
		}
	}
	query += ` GROUP BY u.id HAVING shares >= ? ORDER BY shares DESC, u.url`
	args = append(args, minShares)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: most shared urls: %w", err)
	}
	defer rows.Close()
	var out []SharedURL
	for rows.Next() {
		var shared SharedURL
		u, err := scanURL(rows, &shared.Shares)
		if err != nil {
			return nil, fmt.Errorf("store: most shared urls: %w", err)
		}
		shared.URL = *u
		out = append(out, shared)
	}
	return out, rows.Err()
}

// SharedPageTitles lists the page titles of crawled URLs shared in the
// workspace, once per sharing status. A non-empty screenNames restricts it to
// statuses of those users.
func (s *Store) SharedPageTitles(ctx context.Context, workspaceID int64, screenNames []string) ([]string, error) {
	query := `SELECT u.title
FROM urls u
INNER JOIN statuses_urls su ON su.url_id = u.id
INNER JOIN statuses s ON s.id = su.status_id
INNER JOIN users us ON us.id = s.user_id
WHERE u.workspace_id = ? AND u.title IS NOT NULL AND u.title != ''`
	args := []any{workspaceID}
	if len(screenNames) > 0 {
		query += ` AND us.screen_name IN (` + placeholders(len(screenNames)) + `)`
		for _, name := range screenNames {
			args = append(args, strings.TrimPrefix(name, "@"))
		}
	}
	query += ` ORDER BY s.id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: shared page titles: %w", err)
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("store: shared page titles: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

const urlColumns = `id, workspace_id, url, final_url, http_status, content_type, title, crawled_at`

func scanURL(row scanner, extra ...any) (*URL, error) {
	var (
		u           URL
		finalURL    sql.NullString
		status      sql.NullInt64
		contentType sql.NullString
		title       sql.NullString
		crawledAt   sql.NullInt64
	)
	dest := []any{&u.ID, &u.WorkspaceID, &u.URL, &finalURL, &status, &contentType, &title, &crawledAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	u.FinalURL = finalURL.String
	u.HTTPStatus = int(status.Int64)
	u.ContentType = contentType.String
	u.Title = title.String
	u.CrawledAt = fromNullMillis(crawledAt)
	return &u, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt(value int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(value), Valid: value != 0}
}
