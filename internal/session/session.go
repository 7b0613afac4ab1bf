// Package session resolves who the CLI is acting as. The user id comes from
// the configured value when present, otherwise from the access token's sub
// claim. First resolution lazily upserts the profiles row so foreign keys on
// notes and memberships always have a target.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

// Resolver implements store.Identity.
type Resolver struct {
	client      *postgrest.Client
	configured  string // user id pinned in config, wins over the token
	accessToken string
	email       string

	mu       sync.Mutex
	resolved string
	upserted bool
}

// NewResolver builds a resolver. Any of the inputs may be empty; resolution
// fails only when none of them yields an id.
func NewResolver(client *postgrest.Client, configuredID, accessToken, email string) *Resolver {
	return &Resolver{
		client:      client,
		configured:  configuredID,
		accessToken: accessToken,
		email:       email,
	}
}

// UserID returns the acting user's id, provisioning the profile row once per
// process. Profile failures are logged, not fatal; the id is still usable.
func (r *Resolver) UserID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved == "" {
		id, err := r.resolve()
		if err != nil {
			return "", err
		}
		r.resolved = id
	}

	if !r.upserted && r.client != nil {
		if err := r.upsertProfile(ctx, r.resolved); err != nil {
			log.Printf("Warning: could not provision user profile: %v", err)
		}
		r.upserted = true
	}
	return r.resolved, nil
}

func (r *Resolver) resolve() (string, error) {
	if r.configured != "" {
		return r.configured, nil
	}
	if r.accessToken != "" {
		sub, err := subjectClaim(r.accessToken)
		if err != nil {
			return "", fmt.Errorf("invalid access token: %w", err)
		}
		if sub != "" {
			return sub, nil
		}
	}
	return "", fmt.Errorf("no user identity configured; set user_id or sign in")
}

// subjectClaim extracts sub without verifying the signature. The backend
// verifies the token on every request; locally we only need the id inside.
func subjectClaim(token string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", err
	}
	return claims.GetSubject()
}

func (r *Resolver) upsertProfile(ctx context.Context, id string) error {
	payload := map[string]any{"id": id}
	if r.email != "" {
		payload["email"] = r.email
	}
	return r.client.From("profiles").Upsert(payload, "id").Execute(ctx, nil)
}
