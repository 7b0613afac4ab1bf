package store

import (
	"path/filepath"
	"testing"
)

func TestOpenSelectsBackend(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "notes.db")

	tests := []struct {
		name      string
		cfg       Config
		wantLocal bool
	}{
		{"nothing configured", Config{LocalPath: localPath}, true},
		{"remote configured", Config{RemoteURL: "https://x.example.com", APIKey: "k"}, false},
		{"force local wins", Config{RemoteURL: "https://x.example.com", APIKey: "k", ForceLocal: true, LocalPath: localPath}, true},
		{"url without key is not remote", Config{RemoteURL: "https://x.example.com", LocalPath: localPath}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(tt.cfg, Deps{})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer st.Close()

			_, isLocal := st.(*Local)
			if isLocal != tt.wantLocal {
				t.Errorf("local = %v, want %v", isLocal, tt.wantLocal)
			}
		})
	}
}
