package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.Limit != 10 || cfg.Search.Threshold != 0.3 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Serve.Addr == "" {
		t.Error("serve addr default missing")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".unites")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yaml := `
remote:
  url: https://file.example.com
  api_key: file-key
search:
  limit: 25
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPABASE_URL", "https://env.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.URL != "https://env.example.com" {
		t.Errorf("env should override file, got %q", cfg.Remote.URL)
	}
	if cfg.Remote.APIKey != "file-key" {
		t.Errorf("api key from file = %q", cfg.Remote.APIKey)
	}
	if cfg.Search.Limit != 25 {
		t.Errorf("file should override default limit, got %d", cfg.Search.Limit)
	}
	if cfg.Search.Threshold != 0.3 {
		t.Errorf("unset keys keep defaults, got %f", cfg.Search.Threshold)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	st := &State{
		AccessToken: "tok",
		UserID:      "u1",
		CurrentTeam: "platform",
		RecentTeams: []string{"platform", "infra"},
	}
	if err := st.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadState()
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if loaded.AccessToken != "tok" || loaded.UserID != "u1" {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.RecentTeams) != 2 || loaded.RecentTeams[0] != "platform" {
		t.Errorf("recent teams = %v", loaded.RecentTeams)
	}

	info, err := os.Stat(StatePath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("state file mode = %v, want 0600 (holds tokens)", info.Mode().Perm())
	}
}

func TestLoadStateMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	st, err := LoadState()
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if st.AccessToken != "" || len(st.RecentTeams) != 0 {
		t.Errorf("missing file should be empty state, got %+v", st)
	}
}

func TestTouchTeam(t *testing.T) {
	st := &State{}

	for _, team := range []string{"a", "b", "c", "d", "e", "f"} {
		st.TouchTeam(team)
	}
	if len(st.RecentTeams) != maxRecentTeams {
		t.Fatalf("len = %d, want %d", len(st.RecentTeams), maxRecentTeams)
	}
	if st.RecentTeams[0] != "f" {
		t.Errorf("most recent = %q, want f", st.RecentTeams[0])
	}

	// Re-touching moves to front without duplicating.
	st.TouchTeam("d")
	if st.RecentTeams[0] != "d" {
		t.Errorf("most recent = %q, want d", st.RecentTeams[0])
	}
	seen := map[string]bool{}
	for _, team := range st.RecentTeams {
		if seen[team] {
			t.Errorf("duplicate team %q in %v", team, st.RecentTeams)
		}
		seen[team] = true
	}

	st.TouchTeam("")
	if st.RecentTeams[0] == "" {
		t.Error("empty team recorded")
	}
}
