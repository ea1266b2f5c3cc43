package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is a post collected from a user's timeline.
type Status struct {
	ID          int64
	WorkspaceID int64
	UserID      int64
	ScreenName  string
	RemoteID    string
	Text        string
	PostedAt    time.Time
	URLs        []string
}

// SaveStatus inserts a status (ignoring duplicates by remote id) and links
// every URL it shares.
func (s *Store) SaveStatus(ctx context.Context, workspaceID, userID int64, st Status) (*Status, error) {
	if strings.TrimSpace(st.RemoteID) == "" {
		return nil, fmt.Errorf("store: status remote id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: save status: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(time.Now())
	posted := st.PostedAt
	if posted.IsZero() {
		posted = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO statuses (workspace_id, user_id, remote_id, text, posted_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, remote_id) DO UPDATE SET text = excluded.text`,
		workspaceID, userID, st.RemoteID, st.Text, toMillis(posted), now,
	); err != nil {
		return nil, fmt.Errorf("store: save status %s: %w", st.RemoteID, err)
	}
	var statusID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM statuses WHERE workspace_id = ? AND remote_id = ?`, workspaceID, st.RemoteID,
	).Scan(&statusID); err != nil {
		return nil, fmt.Errorf("store: save status %s: %w", st.RemoteID, err)
	}

	for _, raw := range st.URLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO urls (workspace_id, url, created_at) VALUES (?, ?, ?)`,
			workspaceID, raw, now,
		); err != nil {
			return nil, fmt.Errorf("store: save url %s: %w", raw, err)
		}
		var urlID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM urls WHERE workspace_id = ? AND url = ?`, workspaceID, raw,
		).Scan(&urlID); err != nil {
			return nil, fmt.Errorf("store: save url %s: %w", raw, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO statuses_urls (status_id, url_id) VALUES (?, ?)`, statusID, urlID,
		); err != nil {
			return nil, fmt.Errorf("store: link url %s: %w", raw, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: save status: %w", err)
	}

	saved := st
	saved.ID = statusID
	saved.WorkspaceID = workspaceID
	saved.UserID = userID
	saved.PostedAt = posted.UTC().Truncate(time.Millisecond)
	return &saved, nil
}

// Statuses lists statuses in a workspace, newest first. A non-empty
// screenNames restricts the result to those users. limit <= 0 means no limit.
func (s *Store) Statuses(ctx context.Context, workspaceID int64, screenNames []string, limit int) ([]Status, error) {
	query := statusSelect + ` WHERE s.workspace_id = ?`
	args := []any{workspaceID}
	if len(screenNames) > 0 {
		query += ` AND u.screen_name IN (` + placeholders(len(screenNames)) + `)`
		for _, name := range screenNames {
			args = append(args, strings.TrimPrefix(name, "@"))
		}
	}
	return s.queryStatuses(ctx, query, args, limit)
}

// SearchStatuses lists statuses whose text contains term, ignoring case.
func (s *Store) SearchStatuses(ctx context.Context, workspaceID int64, term string, limit int) ([]Status, error) {
	query := statusSelect + ` WHERE s.workspace_id = ? AND s.text LIKE ? ESCAPE '\'`
	return s.queryStatuses(ctx, query, []any{workspaceID, "%" + escapeLike(term) + "%"}, limit)
}

const statusSelect = `SELECT s.id, s.workspace_id, s.user_id, u.screen_name, s.remote_id, s.text, s.posted_at
FROM statuses s INNER JOIN users u ON u.id = s.user_id`

func (s *Store) queryStatuses(ctx context.Context, query string, args []any, limit int) ([]Status, error) {
	query += ` ORDER BY s.posted_at DESC, s.id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list statuses: %w", err)
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		var (
			st       Status
			postedAt int64
		)
		if err := rows.Scan(&st.ID, &st.WorkspaceID, &st.UserID, &st.ScreenName, &st.RemoteID, &st.Text, &postedAt); err != nil {
			return nil, fmt.Errorf("store: list statuses: %w", err)
		}
		st.PostedAt = fromMillis(postedAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
