// Package store is the persistence core: one facade over a local embedded
// SQLite store and a remote relational backend, selected when the handle is
// opened. Callers never see which backend they got beyond the operations it
// refuses with ErrUnsupported.
package store

import (
	"sort"
	"strings"
	"time"
)

// Note is a captured knowledge entry tied to its git context.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	GitCommit   string    `json:"git_commit,omitempty"`
	GitBranch   string    `json:"git_branch,omitempty"`
	ProjectPath string    `json:"project_path,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
}

// ScoredNote pairs a note with its semantic similarity to a query.
type ScoredNote struct {
	Note       Note    `json:"note"`
	Similarity float64 `json:"similarity"`
}

// Team is a shared namespace for notes. Slug and Description are optional
// schema capabilities and may be empty against older backends.
type Team struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug,omitempty"`
	Description string     `json:"description,omitempty"`
	MemberCount int        `json:"member_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Role of a user within a team.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member is one user's membership in a team.
type Member struct {
	UserID    string    `json:"user_id"`
	TeamID    string    `json:"team_id"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	InvitedBy string    `json:"invited_by,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// Invitation is a pending offer to join a team, redeemed by code.
type Invitation struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	InvitedBy  string     `json:"invited_by,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the invitation can still be redeemed.
func (i *Invitation) Active(now time.Time) bool {
	return i.RedeemedAt == nil && now.Before(i.ExpiresAt)
}

// NoteInput is the payload for AddNote. Tags are deduplicated and sorted
// before storage; blank tags are dropped.
type NoteInput struct {
	Title       string
	Body        string
	Tags        []string
	GitCommit   string
	GitBranch   string
	ProjectPath string
	Team        string // id, slug or name; empty for a personal note
}

// ListFilter narrows ListNotes.
type ListFilter struct {
	Limit int
	Tag   string // exact token match
	Team  string // id, slug or name
}

// normalizeTags dedupes, trims and sorts a tag list.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
