package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestUserIDPrefersConfiguredValue(t *testing.T) {
	r := NewResolver(nil, "configured-id", signedToken(t, "token-id"), "")

	id, err := r.UserID(context.Background())
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if id != "configured-id" {
		t.Errorf("id = %q, want configured-id", id)
	}
}

func TestUserIDFallsBackToTokenSubject(t *testing.T) {
	r := NewResolver(nil, "", signedToken(t, "token-id"), "")

	id, err := r.UserID(context.Background())
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if id != "token-id" {
		t.Errorf("id = %q, want token-id", id)
	}
}

func TestUserIDWithoutAnyIdentity(t *testing.T) {
	r := NewResolver(nil, "", "", "")

	if _, err := r.UserID(context.Background()); err == nil {
		t.Fatal("expected error when nothing identifies the user")
	}
}

func TestUserIDRejectsMalformedToken(t *testing.T) {
	r := NewResolver(nil, "", "not-a-jwt", "")

	if _, err := r.UserID(context.Background()); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestUserIDUpsertsProfileOnce(t *testing.T) {
	var upserts int
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/rest/v1/profiles" {
			upserts++
			buf := make([]byte, 1024)
			n, _ := r.Body.Read(buf)
			lastBody = string(buf[:n])
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := postgrest.NewClient(srv.URL, "k")
	r := NewResolver(client, "user-1", "", "dev@example.com")

	for i := 0; i < 3; i++ {
		if _, err := r.UserID(context.Background()); err != nil {
			t.Fatalf("UserID() error = %v", err)
		}
	}

	if upserts != 1 {
		t.Errorf("profile upserted %d times, want 1", upserts)
	}
	if !strings.Contains(lastBody, "user-1") || !strings.Contains(lastBody, "dev@example.com") {
		t.Errorf("upsert payload = %s", lastBody)
	}
}
