package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

func TestQueryBuildsFiltersAndHeaders(t *testing.T) {
	var gotURL *url.URL
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key")
	var rows []map[string]any
	err := client.From("notes").Select("*").
		Eq("team_id", "t1").
		Order("created_at", false).
		Limit(5).
		Execute(context.Background(), &rows)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotURL.Path != "/rest/v1/notes" {
		t.Errorf("path = %q", gotURL.Path)
	}
	q := gotURL.Query()
	if q.Get("select") != "*" || q.Get("team_id") != "eq.t1" {
		t.Errorf("filters = %v", q)
	}
	if q.Get("order") != "created_at.desc" || q.Get("limit") != "5" {
		t.Errorf("order/limit = %v", q)
	}
	if gotKey != "anon-key" || gotAuth != "Bearer anon-key" {
		t.Errorf("auth headers = %q / %q", gotKey, gotAuth)
	}
}

func TestQueryWithTokenOverridesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key").WithToken("user-jwt")
	if err := client.From("notes").Select("*").Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotAuth != "Bearer user-jwt" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestQuerySingleUnwrapsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"n1"}]`))
	}))
	defer srv.Close()

	var row struct {
		ID string `json:"id"`
	}
	err := NewClient(srv.URL, "k").From("notes").Select("*").Single().Execute(context.Background(), &row)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if row.ID != "n1" {
		t.Errorf("id = %q", row.ID)
	}
}

func TestQuerySingleEmptyIsErrNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var row struct{}
	err := NewClient(srv.URL, "k").From("notes").Single().Execute(context.Background(), &row)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("error = %v, want ErrNoRows", err)
	}
}

func TestQueryDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value","details":"Key (slug) exists.","hint":null}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").From("teams").Insert(map[string]any{"name": "x"}).Execute(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != "23505" || apiErr.Status != http.StatusConflict {
		t.Errorf("decoded = %+v", apiErr)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").From("notes").Select("*").Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad filter"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").From("notes").Select("*").Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestUpsertSetsMergePreferences(t *testing.T) {
	var gotPrefer string
	var gotConflict string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotConflict = r.URL.Query().Get("on_conflict")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").From("profiles").
		Upsert(map[string]any{"id": "u1"}, "id").
		Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotConflict != "id" {
		t.Errorf("on_conflict = %q", gotConflict)
	}
	if gotPrefer != "return=representation,resolution=merge-duplicates" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
}
