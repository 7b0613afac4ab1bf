package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const localDBFile = "notes.db"

// Local is the embedded SQLite backend: a single denormalized notes table,
// no team/membership/invitation entities. Team filtering is plain string
// equality on the team_id column.
type Local struct {
	db   *sql.DB
	path string
}

// OpenLocal opens (creating if needed) the local database. An empty path
// falls back to ~/.unites/notes.db.
func OpenLocal(path string) (*Local, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".unites", localDBFile)
	} else if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, path[1:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	l := &Local{db: db, path: path}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the notes table and adds columns introduced after the
// first release. Additive only; existing data is never rewritten.
func (l *Local) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			tags TEXT,
			created_at TEXT NOT NULL,
			git_commit TEXT,
			git_branch TEXT,
			project_path TEXT,
			team_id TEXT
		)
	`)
	if err != nil {
		return err
	}
	// team_id postdates the original schema; older databases gain it here.
	return l.ensureColumn("team_id", "TEXT")
}

func (l *Local) ensureColumn(column, definition string) error {
	rows, err := l.db.Query(`PRAGMA table_info(notes)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return err
		}
		if name == column {
			return rows.Err()
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = l.db.Exec(fmt.Sprintf("ALTER TABLE notes ADD COLUMN %s %s", column, definition))
	return err
}

// Path returns the database file location.
func (l *Local) Path() string { return l.path }

// Close releases the database handle.
func (l *Local) Close() error { return l.db.Close() }

// AddNote inserts a note. Tags are deduplicated and sorted; the team, when
// given, is stored verbatim as an opaque id.
func (l *Local) AddNote(ctx context.Context, in NoteInput) (string, error) {
	id := uuid.New().String()
	tags := normalizeTags(in.Tags)
	var tagString sql.NullString
	if len(tags) > 0 {
		tagString = sql.NullString{String: strings.Join(tags, ","), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, body, tags, created_at, git_commit, git_branch, project_path, team_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.Title, in.Body, tagString,
		time.Now().UTC().Format(time.RFC3339),
		nullable(in.GitCommit), nullable(in.GitBranch), nullable(in.ProjectPath), nullable(in.Team))
	if err != nil {
		return "", fmt.Errorf("failed to insert note: %w", err)
	}
	return id, nil
}

// ListNotes returns notes newest first. The tag filter matches whole tags
// only: a note tagged "releases" does not match tag "release".
func (l *Local) ListNotes(ctx context.Context, f ListFilter) ([]Note, error) {
	var (
		where  []string
		params []any
	)
	if f.Tag != "" {
		where = append(where, `(',' || IFNULL(tags, '') || ',') LIKE ? ESCAPE '\'`)
		params = append(params, "%,"+escapeLike(f.Tag)+",%")
	}
	if f.Team != "" {
		where = append(where, `team_id = ?`)
		params = append(params, f.Team)
	}

	query := `SELECT id, title, body, tags, created_at, git_commit, git_branch, project_path, team_id FROM notes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY datetime(created_at) DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		params = append(params, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// GetNote returns the note or nil when absent.
func (l *Local) GetNote(ctx context.Context, id string) (*Note, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, title, body, tags, created_at, git_commit, git_branch, project_path, team_id
		FROM notes WHERE id = ?
	`, id)

	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// SearchNotes matches the query as a case-insensitive substring of the
// title, body or comma-joined tag string, newest first. Unlike the remote
// path, tags participate in matching here.
func (l *Local) SearchNotes(ctx context.Context, query, team string) ([]Note, error) {
	pattern := "%" + escapeLike(query) + "%"
	params := []any{pattern, pattern, pattern}
	teamClause := ""
	if team != "" {
		teamClause = " AND team_id = ?"
		params = append(params, team)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, title, body, tags, created_at, git_commit, git_branch, project_path, team_id
		FROM notes
		WHERE (title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR IFNULL(tags, '') LIKE ? ESCAPE '\')`+teamClause+`
		ORDER BY datetime(created_at) DESC
	`, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// SemanticSearch requires the remote backend.
func (l *Local) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]ScoredNote, error) {
	return nil, fmt.Errorf("semantic search: %w", ErrUnsupported)
}

// Team and invitation management requires the remote backend.

func (l *Local) CreateTeam(ctx context.Context, name, description string) (*Team, error) {
	return nil, fmt.Errorf("create team: %w", ErrUnsupported)
}

func (l *Local) GetTeam(ctx context.Context, identifier string) (*Team, error) {
	return nil, fmt.Errorf("get team: %w", ErrUnsupported)
}

func (l *Local) UpdateTeam(ctx context.Context, identifier, name, description string) (*Team, error) {
	return nil, fmt.Errorf("update team: %w", ErrUnsupported)
}

func (l *Local) DeleteTeam(ctx context.Context, identifier string) error {
	return fmt.Errorf("delete team: %w", ErrUnsupported)
}

func (l *Local) ListUserTeams(ctx context.Context) ([]Team, error) {
	return nil, fmt.Errorf("list teams: %w", ErrUnsupported)
}

func (l *Local) AddUserToTeam(ctx context.Context, teamID, userID string, role Role) error {
	return fmt.Errorf("add team member: %w", ErrUnsupported)
}

func (l *Local) RemoveUserFromTeam(ctx context.Context, teamID, userID string) error {
	return fmt.Errorf("remove team member: %w", ErrUnsupported)
}

func (l *Local) GetTeamMembers(ctx context.Context, identifier string) ([]Member, error) {
	return nil, fmt.Errorf("list team members: %w", ErrUnsupported)
}

func (l *Local) CreateInvitation(ctx context.Context, teamIdentifier, email string, role Role) (*Invitation, error) {
	return nil, fmt.Errorf("create invitation: %w", ErrUnsupported)
}

func (l *Local) ListInvitations(ctx context.Context, teamIdentifier string) ([]Invitation, error) {
	return nil, fmt.Errorf("list invitations: %w", ErrUnsupported)
}

func (l *Local) AcceptInvitation(ctx context.Context, code string) (*Team, error) {
	return nil, fmt.Errorf("accept invitation: %w", ErrUnsupported)
}

// --- row scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var (
		n         Note
		tags      sql.NullString
		createdAt string
		commit    sql.NullString
		branch    sql.NullString
		project   sql.NullString
		teamID    sql.NullString
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Body, &tags, &createdAt, &commit, &branch, &project, &teamID); err != nil {
		return nil, err
	}
	if tags.Valid && tags.String != "" {
		n.Tags = strings.Split(tags.String, ",")
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		n.CreatedAt = t
	} else {
		log.Printf("Warning: note %s has an unreadable created_at %q: %v", n.ID, createdAt, err)
	}
	n.GitCommit = commit.String
	n.GitBranch = branch.String
	n.ProjectPath = project.String
	n.TeamID = teamID.String
	return &n, nil
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

var _ Store = (*Local)(nil)
