package store

import (
	"errors"
	"strings"
	"sync"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

// Capability identifies one optional remote-schema feature. Older backend
// migrations lack some of these columns/tables; the client discovers which by
// probing error responses rather than handshaking a schema version.
type Capability int

const (
	CapTeamSlug Capability = iota
	CapTeamDescription
	CapMemberRole
	CapInvitations
	CapNoteTeam
	CapTeamSoftDelete
	numCapabilities
)

func (c Capability) String() string {
	switch c {
	case CapTeamSlug:
		return "teams.slug"
	case CapTeamDescription:
		return "teams.description"
	case CapMemberRole:
		return "users_teams.role"
	case CapInvitations:
		return "team_invitations"
	case CapNoteTeam:
		return "notes.team_id"
	case CapTeamSoftDelete:
		return "teams.deleted_at"
	}
	return "unknown"
}

// capSignature describes how a missing-schema error for a capability reads.
// table alone matches undefined-table errors; table+column matches
// undefined-column errors.
type capSignature struct {
	table  string
	column string
}

var capSignatures = map[Capability]capSignature{
	CapTeamSlug:        {table: "teams", column: "slug"},
	CapTeamDescription: {table: "teams", column: "description"},
	CapMemberRole:      {table: "users_teams", column: "role"},
	CapInvitations:     {table: "team_invitations"},
	CapNoteTeam:        {table: "notes", column: "team_id"},
	CapTeamSoftDelete:  {table: "teams", column: "deleted_at"},
}

// capabilitySet tracks which optional schema features the connected backend
// has. Flags only ever go from true to false during a connection's lifetime;
// a fresh connection starts optimistic again. Safe for concurrent use: the
// handle is shared between the CLI path and the activity-feed server.
type capabilitySet struct {
	mu      sync.Mutex
	missing [numCapabilities]bool
}

func newCapabilitySet() *capabilitySet {
	return &capabilitySet{}
}

// Has reports whether the capability is still believed present.
func (s *capabilitySet) Has(c Capability) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.missing[c]
}

func (s *capabilitySet) disable(c Capability) {
	s.mu.Lock()
	s.missing[c] = true
	s.mu.Unlock()
}

// downgradeFor inspects a backend error and, when it matches the
// missing-column/table signature of a still-enabled capability, disables that
// capability and returns it. The caller retries the operation once with the
// reduced payload. Unrelated errors leave the set untouched.
func (s *capabilitySet) downgradeFor(err error) (Capability, bool) {
	code, msg := errorCodeAndMessage(err)
	if !schemaMismatchCode(code) && !schemaMismatchMessage(msg) {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(msg)
	for c, sig := range capSignatures {
		if s.missing[c] {
			continue
		}
		if sig.column != "" {
			if strings.Contains(lower, "'"+sig.column+"'") ||
				(strings.Contains(lower, sig.column) && strings.Contains(lower, sig.table)) {
				s.missing[c] = true
				return c, true
			}
		} else if strings.Contains(lower, sig.table) {
			s.missing[c] = true
			return c, true
		}
	}
	return 0, false
}

func errorCodeAndMessage(err error) (string, string) {
	var apiErr *postgrest.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message + " " + apiErr.Details + " " + apiErr.Hint
	}
	if err != nil {
		return "", err.Error()
	}
	return "", ""
}

func schemaMismatchCode(code string) bool {
	switch code {
	case postgrest.CodeUndefinedColumn, postgrest.CodeUndefinedTable,
		"PGRST204", // unknown column in an insert/update payload
		"PGRST205": // unknown table
		return true
	}
	return false
}

// schemaMismatchMessage is the substring fallback for backends or proxies
// that strip the error code.
func schemaMismatchMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "does not exist") &&
		(strings.Contains(lower, "column") || strings.Contains(lower, "table") || strings.Contains(lower, "relation")) {
		return true
	}
	return strings.Contains(lower, "could not find") && strings.Contains(lower, "schema cache")
}

// isDuplicate reports whether a backend error is a uniqueness violation,
// preferring the structured code over message matching.
func isDuplicate(err error) bool {
	code, msg := errorCodeAndMessage(err)
	if code == postgrest.CodeUniqueViolation {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "duplicate") || strings.Contains(lower, "unique constraint")
}
