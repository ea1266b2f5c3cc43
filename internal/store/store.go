// Package store persists workspaces and collected OSINT data in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultWorkspaceName is created on first launch and selected by default.
const (
	DefaultWorkspaceName        = "default"
	DefaultWorkspaceDescription = "Default workspace"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrExists is returned when a unique name is already taken.
	ErrExists = errors.New("store: already exists")
)

// Store provides SQLite-backed persistence.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite db: %w", err)
	}
	// Pool workers share this handle; writes go through a single connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Workspace isolates collected data.
type Workspace struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateWorkspace inserts a new workspace. Names are unique ignoring case.
func (s *Store) CreateWorkspace(ctx context.Context, name, description string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("store: workspace name is required")
	}
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, strings.TrimSpace(description), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("workspace %s: %w", name, ErrExists)
		}
		return nil, fmt.Errorf("store: create workspace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create workspace: %w", err)
	}
	return s.workspaceBy(ctx, "id = ?", id)
}

// Workspaces lists every workspace ordered by name.
func (s *Store) Workspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list workspaces: %w", err)
	}
	defer rows.Close()
	var out []Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list workspaces: %w", err)
		}
		out = append(out, *ws)
	}
	return out, rows.Err()
}

// WorkspaceByName finds a workspace ignoring case.
func (s *Store) WorkspaceByName(ctx context.Context, name string) (*Workspace, error) {
	return s.workspaceBy(ctx, "name = ?", strings.TrimSpace(name))
}

// RenameWorkspace changes a workspace's name.
func (s *Store) RenameWorkspace(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("store: workspace name is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET name = ?, updated_at = ? WHERE id = ?`,
		name, toMillis(time.Now()), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("workspace %s: %w", name, ErrExists)
		}
		return fmt.Errorf("store: rename workspace: %w", err)
	}
	return expectAffected(res, "workspace")
}

// DeleteWorkspace removes a workspace and everything collected in it.
func (s *Store) DeleteWorkspace(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete workspace: %w", err)
	}
	return expectAffected(res, "workspace")
}

// EnsureDefaultWorkspace returns the default workspace, creating it if it
// does not exist yet.
func (s *Store) EnsureDefaultWorkspace(ctx context.Context) (*Workspace, error) {
	ws, err := s.WorkspaceByName(ctx, DefaultWorkspaceName)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreateWorkspace(ctx, DefaultWorkspaceName, DefaultWorkspaceDescription)
}

func (s *Store) workspaceBy(ctx context.Context, where string, arg any) (*Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM workspaces WHERE `+where, arg)
	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get workspace: %w", err)
	}
	return ws, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row scanner) (*Workspace, error) {
	var (
		ws        Workspace
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ws.CreatedAt = fromMillis(createdAt)
	ws.UpdatedAt = fromMillis(updatedAt)
	return &ws, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value time.Time) sql.NullInt64 {
	if value.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	return fromMillis(value.Int64)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
