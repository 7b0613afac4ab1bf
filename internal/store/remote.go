package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/match"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

const defaultSemanticLimit = 10

// noteSelect pulls the note row plus its project path and tag names through
// resource embedding, so reads come back in one round trip.
const noteSelect = "*, projects(path), tags(name)"

// Remote persists notes, teams and invitations through the hosted REST
// backend. It adapts at runtime to older backend schemas: when a request
// fails because an optional column or table is missing, the corresponding
// capability is switched off and the request retried without it.
type Remote struct {
	client   *postgrest.Client
	identity Identity
	embedder Embedder
	caps     *capabilitySet
}

// NewRemote wraps an authenticated client. identity may be nil, in which case
// notes are saved without ownership and role-checked operations fail.
func NewRemote(client *postgrest.Client, identity Identity, embedder Embedder) *Remote {
	return &Remote{
		client:   client,
		identity: identity,
		embedder: embedder,
		caps:     newCapabilitySet(),
	}
}

// Close is a no-op; the HTTP client holds no connection state worth tearing
// down.
func (r *Remote) Close() error { return nil }

// withRetry runs fn, and when it fails with a missing-schema error that maps
// to a known capability, disables the capability and runs fn again. fn must
// rebuild its request from current capabilities on each call.
func (r *Remote) withRetry(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 0; attempt <= int(numCapabilities); attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if c, ok := r.caps.downgradeFor(err); ok {
			log.Printf("Warning: backend schema is missing %s, retrying without it", c)
			continue
		}
		return err
	}
	return fmt.Errorf("too many schema downgrades in one operation")
}

// userID resolves the acting user, tolerating the anonymous case.
func (r *Remote) userID(ctx context.Context) string {
	if r.identity == nil {
		return ""
	}
	id, err := r.identity.UserID(ctx)
	if err != nil {
		log.Printf("Warning: could not resolve user identity: %v", err)
		return ""
	}
	return id
}

// vector decodes an embedding column that the backend may serialize either as
// a JSON array or as a pgvector text literal.
type vector []float32

func (v *vector) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*v = nil
		return nil
	}
	if data[0] == '[' {
		var f []float32
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = f
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		*v = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("invalid embedding element %q: %w", p, err)
		}
		out = append(out, float32(f))
	}
	*v = out
	return nil
}

// remoteNote is the wire shape of a note row with its embedded project and
// tag resources.
type remoteNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Project   *struct {
		Path string `json:"path"`
	} `json:"projects"`
	TagRefs []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Embedding vector `json:"body_embedding"`
}

func (n remoteNote) toNote() Note {
	out := Note{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		GitCommit: n.GitCommit,
		GitBranch: n.GitBranch,
		TeamID:    n.TeamID,
		UserID:    n.UserID,
	}
	if n.Project != nil {
		out.ProjectPath = n.Project.Path
	}
	for _, t := range n.TagRefs {
		out.Tags = append(out.Tags, t.Name)
	}
	sort.Strings(out.Tags)
	return out
}

func toNotes(rows []remoteNote) []Note {
	if len(rows) == 0 {
		return nil
	}
	out := make([]Note, len(rows))
	for i, row := range rows {
		out[i] = row.toNote()
	}
	return out
}

// AddNote stores a note, resolving (and if necessary creating) the named
// team and the project row for the capture path, then linking tags. Against
// backends without the team column the note is saved personal with a warning
// rather than failing.
func (r *Remote) AddNote(ctx context.Context, in NoteInput) (string, error) {
	teamID := ""
	if in.Team != "" {
		if r.caps.Has(CapNoteTeam) {
			team, err := r.resolveOrCreateTeam(ctx, in.Team)
			if err != nil {
				return "", err
			}
			teamID = team.ID
		} else {
			log.Printf("Warning: backend does not support team notes, saving as personal note")
		}
	}

	projectID := ""
	if in.ProjectPath != "" {
		id, err := r.resolveOrCreateProject(ctx, in.ProjectPath)
		if err != nil {
			return "", err
		}
		projectID = id
	}

	var id string
	err := r.withRetry(ctx, func(ctx context.Context) error {
		payload := map[string]any{
			"title": in.Title,
			"body":  in.Body,
		}
		if in.GitCommit != "" {
			payload["git_commit"] = in.GitCommit
		}
		if in.GitBranch != "" {
			payload["git_branch"] = in.GitBranch
		}
		if projectID != "" {
			payload["project_id"] = projectID
		}
		if uid := r.userID(ctx); uid != "" {
			payload["user_id"] = uid
		}
		if teamID != "" && r.caps.Has(CapNoteTeam) {
			payload["team_id"] = teamID
		}

		var row remoteNote
		if err := r.client.From("notes").Insert(payload).Single().Execute(ctx, &row); err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to save note: %w", err)
	}

	// Tag links are separate inserts; a failure here leaves the note saved
	// without some of its tags.
	if err := r.linkTags(ctx, id, normalizeTags(in.Tags)); err != nil {
		return "", fmt.Errorf("note %s saved, but tagging failed: %w", id, err)
	}
	return id, nil
}

// resolveOrCreateProject returns the project row id for a capture path,
// creating the row on first sight of the path.
func (r *Remote) resolveOrCreateProject(ctx context.Context, path string) (string, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	err := r.client.From("projects").Select("id").Eq("path", path).Limit(1).Execute(ctx, &rows)
	if err != nil {
		return "", fmt.Errorf("failed to look up project: %w", err)
	}
	if len(rows) > 0 {
		return rows[0].ID, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	payload := map[string]any{"path": path, "name": filepath.Base(path)}
	err = r.client.From("projects").Insert(payload).Single().Execute(ctx, &created)
	if err == nil {
		return created.ID, nil
	}
	if !isDuplicate(err) {
		return "", fmt.Errorf("failed to create project: %w", err)
	}

	// Lost a create race; the row exists now.
	rows = rows[:0]
	if err := r.client.From("projects").Select("id").Eq("path", path).Limit(1).Execute(ctx, &rows); err != nil || len(rows) == 0 {
		return "", fmt.Errorf("failed to resolve project after duplicate: %w", err)
	}
	return rows[0].ID, nil
}

// linkTags upserts each tag by name and joins it to the note.
func (r *Remote) linkTags(ctx context.Context, noteID string, tags []string) error {
	for _, tag := range tags {
		var row struct {
			ID string `json:"id"`
		}
		err := r.client.From("tags").Upsert(map[string]any{"name": tag}, "name").Single().Execute(ctx, &row)
		if err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}

		link := map[string]any{"note_id": noteID, "tag_id": row.ID}
		err = r.client.From("note_tags").Insert(link).Execute(ctx, nil)
		if err != nil && !isDuplicate(err) {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
	}
	return nil
}

// resolveTeamFilter maps a user-supplied team filter to a team id. An
// unresolvable team reads as "no notes", not an error.
func (r *Remote) resolveTeamFilter(ctx context.Context, identifier string) (string, bool, error) {
	if identifier == "" {
		return "", true, nil
	}
	if !r.caps.Has(CapNoteTeam) {
		return "", false, fmt.Errorf("team filter: %w", ErrUnsupported)
	}
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return "", false, err
	}
	if team == nil {
		return "", false, nil
	}
	return team.ID, true, nil
}

// ListNotes returns notes newest first, optionally narrowed to a tag or team.
func (r *Remote) ListNotes(ctx context.Context, f ListFilter) ([]Note, error) {
	teamID, ok, err := r.resolveTeamFilter(ctx, f.Team)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rows []remoteNote
	err = r.withRetry(ctx, func(ctx context.Context) error {
		q := r.client.From("notes")
		if f.Tag != "" {
			// inner join so only notes carrying the tag come back
			q.Select("*, projects(path), tags!inner(name)").Eq("tags.name", f.Tag)
		} else {
			q.Select(noteSelect)
		}
		q.Order("created_at", false)
		if teamID != "" && r.caps.Has(CapNoteTeam) {
			q.Eq("team_id", teamID)
		}
		if f.Limit > 0 {
			q.Limit(f.Limit)
		}
		rows = nil
		return q.Execute(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return toNotes(rows), nil
}

// GetNote returns the note or nil when absent.
func (r *Remote) GetNote(ctx context.Context, id string) (*Note, error) {
	var row remoteNote
	err := r.client.From("notes").Select(noteSelect).Eq("id", id).Single().Execute(ctx, &row)
	if errors.Is(err, postgrest.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch note: %w", err)
	}
	note := row.toNote()
	return &note, nil
}

// SearchNotes unions a full-text match on the body with a case-insensitive
// substring match on the title, newest first. Tags are not searched here;
// use the tag filter on ListNotes for that.
func (r *Remote) SearchNotes(ctx context.Context, query, team string) ([]Note, error) {
	teamID, ok, err := r.resolveTeamFilter(ctx, team)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rows []remoteNote
	err = r.withRetry(ctx, func(ctx context.Context) error {
		q := r.client.From("notes").Select(noteSelect).
			Or("title.ilike." + orLiteral("*"+query+"*") + ",body.wfts." + orLiteral(query)).
			Order("created_at", false)
		if teamID != "" && r.caps.Has(CapNoteTeam) {
			q.Eq("team_id", teamID)
		}
		rows = nil
		return q.Execute(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return toNotes(rows), nil
}

// orLiteral quotes a filter value for use inside an or=() disjunction when it
// carries characters the disjunction syntax reserves, which would otherwise
// split the condition list.
func orLiteral(s string) string {
	if !strings.ContainsAny(s, `,()"\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// SemanticSearch embeds the query remotely, pulls candidate notes that carry
// an embedding and ranks them client-side by cosine similarity. Only matches
// strictly above the threshold are returned.
func (r *Remote) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]ScoredNote, error) {
	if r.embedder == nil {
		return nil, &UnavailableError{Reason: "no embedding service configured"}
	}
	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &UnavailableError{Reason: "embedding service", Err: err}
	}
	if limit <= 0 {
		limit = defaultSemanticLimit
	}

	var rows []remoteNote
	err = r.client.From("notes").Select(noteSelect).
		Not("body_embedding", "is", "null").
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes for search: %w", err)
	}

	vectors := make([][]float32, len(rows))
	for i, row := range rows {
		vectors[i] = row.Embedding
	}

	var results []ScoredNote
	for _, s := range match.Rank(queryVec, vectors) {
		if s.Similarity <= threshold {
			break
		}
		results = append(results, ScoredNote{Note: rows[s.Index].toNote(), Similarity: s.Similarity})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

var _ Store = (*Remote)(nil)
