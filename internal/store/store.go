package store

import (
	"context"
	"fmt"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/embedding"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

// Store is the single persistence contract presented to the CLI. Both
// backends implement every method; operations a mode cannot perform fail
// with ErrUnsupported instead of silently degrading.
type Store interface {
	// Notes
	AddNote(ctx context.Context, in NoteInput) (string, error)
	ListNotes(ctx context.Context, f ListFilter) ([]Note, error)
	GetNote(ctx context.Context, id string) (*Note, error)
	SearchNotes(ctx context.Context, query, team string) ([]Note, error)
	SemanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]ScoredNote, error)

	// Teams (remote mode only)
	CreateTeam(ctx context.Context, name, description string) (*Team, error)
	GetTeam(ctx context.Context, identifier string) (*Team, error)
	UpdateTeam(ctx context.Context, identifier, name, description string) (*Team, error)
	DeleteTeam(ctx context.Context, identifier string) error
	ListUserTeams(ctx context.Context) ([]Team, error)
	AddUserToTeam(ctx context.Context, teamID, userID string, role Role) error
	RemoveUserFromTeam(ctx context.Context, teamID, userID string) error
	GetTeamMembers(ctx context.Context, identifier string) ([]Member, error)

	// Invitations (remote mode only)
	CreateInvitation(ctx context.Context, teamIdentifier, email string, role Role) (*Invitation, error)
	ListInvitations(ctx context.Context, teamIdentifier string) ([]Invitation, error)
	AcceptInvitation(ctx context.Context, code string) (*Team, error)

	Close() error
}

// Identity resolves the acting user's id, provisioning the remote profile
// row on first resolution. Implemented by internal/session.
type Identity interface {
	UserID(ctx context.Context) (string, error)
}

// Embedder turns text into a vector via the remote embedding function.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Config is the resolved configuration the facade consumes. The facade never
// reads environment or files itself; the caller resolves those.
type Config struct {
	RemoteURL   string
	APIKey      string
	AccessToken string
	LocalPath   string // explicit local database path; forces local mode
	ForceLocal  bool
}

// Deps carries collaborator implementations. Zero values are acceptable for
// local mode; remote mode without an Identity can read but not perform
// role-checked mutations.
type Deps struct {
	Identity Identity
	Embedder Embedder
}

// remoteConfigured reports whether remote credentials are present.
func (c Config) remoteConfigured() bool {
	return c.RemoteURL != "" && c.APIKey != ""
}

// Open selects the backend once and returns a handle bound to it. An explicit
// local path or force-local flag wins; otherwise remote credentials decide.
func Open(cfg Config, deps Deps) (Store, error) {
	if cfg.LocalPath != "" || cfg.ForceLocal || !cfg.remoteConfigured() {
		local, err := OpenLocal(cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return local, nil
	}

	client := postgrest.NewClient(cfg.RemoteURL, cfg.APIKey)
	if cfg.AccessToken != "" {
		client = client.WithToken(cfg.AccessToken)
	}

	embedder := deps.Embedder
	if embedder == nil {
		embedder = embedding.NewClient(cfg.RemoteURL, cfg.APIKey)
	}

	return NewRemote(client, deps.Identity, embedder), nil
}
