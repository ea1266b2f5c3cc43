package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is a social media account collected into a workspace.
type User struct {
	ID            int64
	WorkspaceID   int64
	RemoteID      string
	ScreenName    string
	Name          string
	Location      string
	Description   string
	URL           string
	Followers     int64
	Friends       int64
	StatusesCount int64
	Verified      bool
	JoinedAt      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const userColumns = `id, workspace_id, remote_id, screen_name, name, location, description, url,
	followers_count, friends_count, statuses_count, verified, joined_at, created_at, updated_at`

// SaveUser inserts or updates a user keyed by screen name within the
// workspace and returns the stored row.
func (s *Store) SaveUser(ctx context.Context, workspaceID int64, u User) (*User, error) {
	screenName := strings.TrimPrefix(strings.TrimSpace(u.ScreenName), "@")
	if screenName == "" {
		return nil, fmt.Errorf("store: screen name is required")
	}
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (workspace_id, remote_id, screen_name, name, location, description, url,
	followers_count, friends_count, statuses_count, verified, joined_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (workspace_id, screen_name) DO UPDATE SET
	remote_id = excluded.remote_id,
	name = excluded.name,
	location = excluded.location,
	description = excluded.description,
	url = excluded.url,
	followers_count = excluded.followers_count,
	friends_count = excluded.friends_count,
	statuses_count = excluded.statuses_count,
	verified = excluded.verified,
	joined_at = excluded.joined_at,
	updated_at = excluded.updated_at`,
		workspaceID, u.RemoteID, screenName, u.Name, u.Location, u.Description, u.URL,
		u.Followers, u.Friends, u.StatusesCount, u.Verified, nullMillis(u.JoinedAt), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("store: save user %s: %w", screenName, err)
	}
	return s.UserByScreenName(ctx, workspaceID, screenName)
}

// Users lists the users of a workspace ordered by screen name.
func (s *Store) Users(ctx context.Context, workspaceID int64) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE workspace_id = ? ORDER BY screen_name`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list users: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UserByScreenName finds a user ignoring case and a leading @.
func (s *Store) UserByScreenName(ctx context.Context, workspaceID int64, screenName string) (*User, error) {
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE workspace_id = ? AND screen_name = ?`,
		workspaceID, screenName)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", screenName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user and their statuses.
func (s *Store) DeleteUser(ctx context.Context, workspaceID int64, screenName string) error {
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE workspace_id = ? AND screen_name = ?`, workspaceID, screenName)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return expectAffected(res, "user "+screenName)
}

func scanUser(row scanner) (*User, error) {
	var (
		u         User
		joinedAt  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&u.ID, &u.WorkspaceID, &u.RemoteID, &u.ScreenName, &u.Name, &u.Location, &u.Description, &u.URL,
		&u.Followers, &u.Friends, &u.StatusesCount, &u.Verified, &joinedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	u.JoinedAt = fromNullMillis(joinedAt)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}
