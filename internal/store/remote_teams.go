package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

const (
	slugAttempts     = 5
	inviteCodeLen    = 8
	inviteCodeTries  = 5
	inviteTTL        = 7 * 24 * time.Hour
	inviteCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	membershipsTable = "users_teams"
	invitesTable     = "team_invitations"
)

type memberRow struct {
	UserID    string    `json:"user_id"`
	TeamID    string    `json:"team_id"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	InvitedBy string    `json:"invited_by,omitempty"`
}

// slugify derives a URL-safe handle from a team name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// findTeam runs one lookup with the given filter applied, respecting the
// soft-delete capability. Returns nil when nothing matches.
func (r *Remote) findTeam(ctx context.Context, filter func(*postgrest.Query)) (*Team, error) {
	var team *Team
	err := r.withRetry(ctx, func(ctx context.Context) error {
		q := r.client.From("teams").Select("*")
		filter(q)
		if r.caps.Has(CapTeamSoftDelete) {
			q.Is("deleted_at", "null")
		}
		var rows []Team
		if err := q.Limit(1).Execute(ctx, &rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			team = nil
			return nil
		}
		team = &rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// resolveTeam locates a team by id, then slug, then case-insensitive name.
// Returns nil without error when no team matches.
func (r *Remote) resolveTeam(ctx context.Context, identifier string) (*Team, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		return r.findTeam(ctx, func(q *postgrest.Query) { q.Eq("id", identifier) })
	}
	if r.caps.Has(CapTeamSlug) {
		team, err := r.findTeam(ctx, func(q *postgrest.Query) { q.Eq("slug", identifier) })
		if err != nil || team != nil {
			return team, err
		}
	}
	// ilike without wildcards is case-insensitive equality.
	return r.findTeam(ctx, func(q *postgrest.Query) { q.Ilike("name", identifier) })
}

// resolveOrCreateTeam resolves the identifier, creating the team under that
// name when nothing matches. Used by AddNote so "add --team X" works before
// X exists.
func (r *Remote) resolveOrCreateTeam(ctx context.Context, identifier string) (*Team, error) {
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if team != nil {
		return team, nil
	}
	log.Printf("Creating team %q", identifier)
	return r.CreateTeam(ctx, identifier, "")
}

// CreateTeam creates a team owned by the acting user. Slug collisions are
// resolved by suffixing -2, -3 and so on; a colliding name on backends
// without slugs is a hard duplicate.
func (r *Remote) CreateTeam(ctx context.Context, name, description string) (*Team, error) {
	uid := r.userID(ctx)
	if uid == "" {
		return nil, &AuthzError{Reason: "authentication required to create teams"}
	}
	if description != "" && !r.caps.Has(CapTeamDescription) {
		log.Printf("Warning: backend does not store team descriptions, ignoring")
	}

	baseSlug := slugify(name)
	var team Team
	created := false
	for i := 1; i <= slugAttempts && !created; i++ {
		slug := baseSlug
		if i > 1 {
			slug = fmt.Sprintf("%s-%d", baseSlug, i)
		}

		err := r.withRetry(ctx, func(ctx context.Context) error {
			payload := map[string]any{
				"name":       name,
				"created_by": uid,
			}
			if r.caps.Has(CapTeamSlug) {
				payload["slug"] = slug
			}
			if description != "" && r.caps.Has(CapTeamDescription) {
				payload["description"] = description
			}
			return r.client.From("teams").Insert(payload).Single().Execute(ctx, &team)
		})
		switch {
		case err == nil:
			created = true
		case isDuplicate(err):
			if !r.caps.Has(CapTeamSlug) {
				return nil, &DuplicateError{Resource: "team " + name, Err: err}
			}
			// slug taken, try the next suffix
		default:
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
	}
	if !created {
		return nil, &DuplicateError{Resource: "team " + name}
	}

	if err := r.insertMember(ctx, team.ID, uid, RoleOwner, ""); err != nil && !errors.As(err, new(*DuplicateError)) {
		return nil, fmt.Errorf("team created but owner membership failed: %w", err)
	}
	team.MemberCount = 1
	return &team, nil
}

// GetTeam resolves and returns a team, with member count when available.
func (r *Remote) GetTeam(ctx context.Context, identifier string) (*Team, error) {
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %q: %w", identifier, ErrNotFound)
	}
	if members, err := r.teamMembers(ctx, team.ID); err == nil {
		team.MemberCount = len(members)
	}
	return team, nil
}

// UpdateTeam renames a team or changes its description. Owner or admin only.
func (r *Remote) UpdateTeam(ctx context.Context, identifier, name, description string) (*Team, error) {
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %q: %w", identifier, ErrNotFound)
	}
	if err := r.requireRole(ctx, team.ID, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	if description != "" && !r.caps.Has(CapTeamDescription) {
		log.Printf("Warning: backend does not store team descriptions, ignoring")
	}

	var updated Team
	err = r.withRetry(ctx, func(ctx context.Context) error {
		changes := map[string]any{}
		if name != "" {
			changes["name"] = name
		}
		if description != "" && r.caps.Has(CapTeamDescription) {
			changes["description"] = description
		}
		if len(changes) == 0 {
			updated = *team
			return nil
		}
		return r.client.From("teams").Update(changes).Eq("id", team.ID).Single().Execute(ctx, &updated)
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, &DuplicateError{Resource: "team " + name, Err: err}
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return &updated, nil
}

// DeleteTeam removes a team. Owners only. Backends with the deleted_at
// column keep the row for audit; older ones delete it outright.
func (r *Remote) DeleteTeam(ctx context.Context, identifier string) error {
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return err
	}
	if team == nil {
		return fmt.Errorf("team %q: %w", identifier, ErrNotFound)
	}
	if err := r.requireRole(ctx, team.ID, RoleOwner); err != nil {
		return err
	}

	err = r.withRetry(ctx, func(ctx context.Context) error {
		if r.caps.Has(CapTeamSoftDelete) {
			changes := map[string]any{"deleted_at": time.Now().UTC().Format(time.RFC3339)}
			return r.client.From("teams").Update(changes).Eq("id", team.ID).Execute(ctx, nil)
		}
		return r.client.From("teams").Delete().Eq("id", team.ID).Execute(ctx, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// ListUserTeams returns the teams the acting user belongs to.
func (r *Remote) ListUserTeams(ctx context.Context) ([]Team, error) {
	uid := r.userID(ctx)
	if uid == "" {
		return nil, &AuthzError{Reason: "authentication required to list teams"}
	}

	var memberships []memberRow
	err := r.client.From(membershipsTable).Select("*").Eq("user_id", uid).Execute(ctx, &memberships)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.TeamID
	}

	var teams []Team
	err = r.withRetry(ctx, func(ctx context.Context) error {
		q := r.client.From("teams").Select("*").In("id", ids).Order("name", true)
		if r.caps.Has(CapTeamSoftDelete) {
			q.Is("deleted_at", "null")
		}
		teams = nil
		return q.Execute(ctx, &teams)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// insertMember adds one membership row, with the role column only when the
// backend has it.
func (r *Remote) insertMember(ctx context.Context, teamID, userID string, role Role, invitedBy string) error {
	err := r.withRetry(ctx, func(ctx context.Context) error {
		payload := map[string]any{
			"team_id": teamID,
			"user_id": userID,
		}
		if r.caps.Has(CapMemberRole) {
			payload["role"] = role
		}
		if invitedBy != "" {
			payload["invited_by"] = invitedBy
		}
		return r.client.From(membershipsTable).Insert(payload).Execute(ctx, nil)
	})
	if isDuplicate(err) {
		return &DuplicateError{Resource: "membership", Err: err}
	}
	return err
}

// AddUserToTeam adds a member. Owner or admin only.
func (r *Remote) AddUserToTeam(ctx context.Context, teamID, userID string, role Role) error {
	if err := r.requireRole(ctx, teamID, RoleOwner, RoleAdmin); err != nil {
		return err
	}
	return r.insertMember(ctx, teamID, userID, role, r.userID(ctx))
}

// RemoveUserFromTeam removes a member. Members may remove themselves; removing
// anyone else takes owner or admin.
func (r *Remote) RemoveUserFromTeam(ctx context.Context, teamID, userID string) error {
	if r.userID(ctx) != userID {
		if err := r.requireRole(ctx, teamID, RoleOwner, RoleAdmin); err != nil {
			return err
		}
	}
	err := r.client.From(membershipsTable).Delete().
		Eq("team_id", teamID).Eq("user_id", userID).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (r *Remote) teamMembers(ctx context.Context, teamID string) ([]memberRow, error) {
	var rows []memberRow
	err := r.client.From(membershipsTable).Select("*").Eq("team_id", teamID).Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTeamMembers lists a team's members, enriched with profile emails when
// the profiles table cooperates.
func (r *Remote) GetTeamMembers(ctx context.Context, identifier string) ([]Member, error) {
	team, err := r.resolveTeam(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %q: %w", identifier, ErrNotFound)
	}

	rows, err := r.teamMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members := make([]Member, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		members[i] = Member{
			UserID:    row.UserID,
			TeamID:    row.TeamID,
			Role:      row.Role,
			JoinedAt:  row.CreatedAt,
			InvitedBy: row.InvitedBy,
		}
		ids[i] = row.UserID
	}

	if len(ids) > 0 {
		var profiles []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		}
		if err := r.client.From("profiles").Select("id,email").In("id", ids).Execute(ctx, &profiles); err != nil {
			log.Printf("Warning: could not load member emails: %v", err)
		} else {
			byID := make(map[string]string, len(profiles))
			for _, p := range profiles {
				byID[p.ID] = p.Email
			}
			for i := range members {
				members[i].Email = byID[members[i].UserID]
			}
		}
	}
	return members, nil
}

// requireRole verifies the acting user may administer the team. On backends
// without the role column any member passes.
func (r *Remote) requireRole(ctx context.Context, teamID string, roles ...Role) error {
	uid := r.userID(ctx)
	if uid == "" {
		return &AuthzError{Reason: "authentication required"}
	}

	var rows []memberRow
	err := r.client.From(membershipsTable).Select("*").
		Eq("team_id", teamID).Eq("user_id", uid).
		Execute(ctx, &rows)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if len(rows) == 0 {
		return &AuthzError{Reason: "not a member of this team"}
	}
	if !r.caps.Has(CapMemberRole) || rows[0].Role == "" {
		return nil
	}
	for _, want := range roles {
		if rows[0].Role == want {
			return nil
		}
	}
	return &AuthzError{Reason: fmt.Sprintf("requires %s role", rolesLabel(roles))}
}

func rolesLabel(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}

func newInviteCode() (string, error) {
	b := make([]byte, inviteCodeLen)
	max := big.NewInt(int64(len(inviteCodeChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = inviteCodeChars[n.Int64()]
	}
	return string(b), nil
}

// CreateInvitation issues a join code for a team, valid for seven days.
// Owner or admin only.
func (r *Remote) CreateInvitation(ctx context.Context, teamIdentifier, email string, role Role) (*Invitation, error) {
	if !r.caps.Has(CapInvitations) {
		return nil, fmt.Errorf("invitations: %w", ErrUnsupported)
	}
	team, err := r.resolveTeam(ctx, teamIdentifier)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %q: %w", teamIdentifier, ErrNotFound)
	}
	if err := r.requireRole(ctx, team.ID, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleMember
	}

	// One active invitation per (team, email); re-inviting hands back a
	// duplicate instead of minting a second code.
	existing, err := r.activeInvitation(ctx, team.ID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invitations: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateError{Resource: "invitation for " + email}
	}

	var inv Invitation
	for try := 0; try < inviteCodeTries; try++ {
		code, err := newInviteCode()
		if err != nil {
			return nil, err
		}

		err = r.withRetry(ctx, func(ctx context.Context) error {
			if !r.caps.Has(CapInvitations) {
				return fmt.Errorf("invitations: %w", ErrUnsupported)
			}
			payload := map[string]any{
				"team_id":    team.ID,
				"email":      email,
				"code":       code,
				"expires_at": time.Now().UTC().Add(inviteTTL).Format(time.RFC3339),
			}
			if r.caps.Has(CapMemberRole) {
				payload["role"] = role
			}
			if uid := r.userID(ctx); uid != "" {
				payload["invited_by"] = uid
			}
			return r.client.From(invitesTable).Insert(payload).Single().Execute(ctx, &inv)
		})
		if err == nil {
			return &inv, nil
		}
		if isDuplicate(err) {
			// Either the code collided or someone invited the same email
			// concurrently; only the former is worth another roll.
			if existing, lookErr := r.activeInvitation(ctx, team.ID, email); lookErr == nil && existing != nil {
				return nil, &DuplicateError{Resource: "invitation for " + email, Err: err}
			}
			continue
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil, fmt.Errorf("could not generate a unique invitation code")
}

// activeInvitation returns the unredeemed, unexpired invitation for a
// (team, email) pair, or nil when none exists.
func (r *Remote) activeInvitation(ctx context.Context, teamID, email string) (*Invitation, error) {
	var invs []Invitation
	err := r.client.From(invitesTable).Select("*").
		Eq("team_id", teamID).Eq("email", email).
		Is("redeemed_at", "null").
		Execute(ctx, &invs)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range invs {
		if invs[i].Active(now) {
			return &invs[i], nil
		}
	}
	return nil, nil
}

// ListInvitations lists a team's invitations, newest first. Owner or admin
// only.
func (r *Remote) ListInvitations(ctx context.Context, teamIdentifier string) ([]Invitation, error) {
	if !r.caps.Has(CapInvitations) {
		return nil, fmt.Errorf("invitations: %w", ErrUnsupported)
	}
	team, err := r.resolveTeam(ctx, teamIdentifier)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %q: %w", teamIdentifier, ErrNotFound)
	}
	if err := r.requireRole(ctx, team.ID, RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}

	var invs []Invitation
	err = r.withRetry(ctx, func(ctx context.Context) error {
		if !r.caps.Has(CapInvitations) {
			return fmt.Errorf("invitations: %w", ErrUnsupported)
		}
		invs = nil
		return r.client.From(invitesTable).Select("*").
			Eq("team_id", team.ID).Order("created_at", false).
			Execute(ctx, &invs)
	})
	if err != nil {
		return nil, err
	}
	return invs, nil
}

// AcceptInvitation redeems a code for the acting user and returns the joined
// team. Expired and already-redeemed codes read as not found.
func (r *Remote) AcceptInvitation(ctx context.Context, code string) (*Team, error) {
	if !r.caps.Has(CapInvitations) {
		return nil, fmt.Errorf("invitations: %w", ErrUnsupported)
	}
	uid := r.userID(ctx)
	if uid == "" {
		return nil, &AuthzError{Reason: "authentication required to join a team"}
	}

	var inv Invitation
	err := r.client.From(invitesTable).Select("*").
		Eq("code", strings.ToUpper(strings.TrimSpace(code))).
		Single().Execute(ctx, &inv)
	if errors.Is(err, postgrest.ErrNoRows) {
		return nil, fmt.Errorf("invitation code: %w", ErrNotFound)
	}
	if err != nil {
		if c, ok := r.caps.downgradeFor(err); ok {
			log.Printf("Warning: backend schema is missing %s", c)
			return nil, fmt.Errorf("invitations: %w", ErrUnsupported)
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	if !inv.Active(time.Now()) {
		return nil, fmt.Errorf("invitation code expired or already used: %w", ErrNotFound)
	}

	role := inv.Role
	if role == "" {
		role = RoleMember
	}
	if err := r.insertMember(ctx, inv.TeamID, uid, role, inv.InvitedBy); err != nil {
		var dup *DuplicateError
		if !errors.As(err, &dup) {
			return nil, err
		}
		// already a member; still consume the code below
	}

	redeemed := map[string]any{"redeemed_at": time.Now().UTC().Format(time.RFC3339)}
	if err := r.client.From(invitesTable).Update(redeemed).Eq("id", inv.ID).Execute(ctx, nil); err != nil {
		log.Printf("Warning: joined team but could not mark invitation redeemed: %v", err)
	}

	return r.GetTeam(ctx, inv.TeamID)
}
