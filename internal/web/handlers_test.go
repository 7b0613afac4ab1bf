package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStore serves canned notes and rejects everything else.
type stubStore struct {
	notes   []store.Note
	listErr error
}

func (s *stubStore) AddNote(ctx context.Context, in store.NoteInput) (string, error) {
	return "", store.ErrUnsupported
}

func (s *stubStore) ListNotes(ctx context.Context, f store.ListFilter) ([]store.Note, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.notes
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *stubStore) GetNote(ctx context.Context, id string) (*store.Note, error) {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return &s.notes[i], nil
		}
	}
	return nil, nil
}

func (s *stubStore) SearchNotes(ctx context.Context, query, team string) ([]store.Note, error) {
	return s.notes, nil
}

func (s *stubStore) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]store.ScoredNote, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) CreateTeam(ctx context.Context, name, description string) (*store.Team, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) GetTeam(ctx context.Context, identifier string) (*store.Team, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) UpdateTeam(ctx context.Context, identifier, name, description string) (*store.Team, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) DeleteTeam(ctx context.Context, identifier string) error {
	return store.ErrUnsupported
}

func (s *stubStore) ListUserTeams(ctx context.Context) ([]store.Team, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) AddUserToTeam(ctx context.Context, teamID, userID string, role store.Role) error {
	return store.ErrUnsupported
}

func (s *stubStore) RemoveUserFromTeam(ctx context.Context, teamID, userID string) error {
	return store.ErrUnsupported
}

func (s *stubStore) GetTeamMembers(ctx context.Context, identifier string) ([]store.Member, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) CreateInvitation(ctx context.Context, teamIdentifier, email string, role store.Role) (*store.Invitation, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) ListInvitations(ctx context.Context, teamIdentifier string) ([]store.Invitation, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) AcceptInvitation(ctx context.Context, code string) (*store.Team, error) {
	return nil, store.ErrUnsupported
}

func (s *stubStore) Close() error { return nil }

func testNotes(n int) []store.Note {
	notes := make([]store.Note, n)
	for i := range notes {
		notes[i] = store.Note{
			ID:        fmt.Sprintf("note-%d", i),
			Title:     fmt.Sprintf("title %d", i),
			Body:      "body",
			CreatedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
	}
	return notes
}

func doRequest(t *testing.T, st store.Store, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	srv := NewServer(st)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.router.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, w.Body.String())
	}
	return w, body
}

func TestHandleListNotes(t *testing.T) {
	_, body := doRequest(t, &stubStore{notes: testNotes(3)}, "/api/notes")
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["count"] != float64(3) {
		t.Errorf("count = %v", body["count"])
	}
}

func TestHandleListNotesAppliesLimit(t *testing.T) {
	_, body := doRequest(t, &stubStore{notes: testNotes(10)}, "/api/notes?limit=2")
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

func TestHandleListNotesBadFilter(t *testing.T) {
	st := &stubStore{listErr: fmt.Errorf("team filter: %w", store.ErrUnsupported)}
	w, body := doRequest(t, st, "/api/notes?team=x")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestHandleGetNote(t *testing.T) {
	st := &stubStore{notes: testNotes(1)}

	w, body := doRequest(t, st, "/api/notes/note-0")
	if w.Code != http.StatusOK || body["success"] != true {
		t.Errorf("status = %d body = %v", w.Code, body)
	}

	w, body = doRequest(t, st, "/api/notes/missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	w, _ := doRequest(t, &stubStore{}, "/api/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w, body := doRequest(t, &stubStore{notes: testNotes(2)}, "/api/search?q=title")
	if w.Code != http.StatusOK || body["count"] != float64(2) {
		t.Errorf("status = %d body = %v", w.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	w, body := doRequest(t, &stubStore{}, "/healthz")
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("status = %d body = %v", w.Code, body)
	}
}
