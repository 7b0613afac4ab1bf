package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const maxRecentTeams = 5

// State is the mutable session state persisted between runs: credentials
// from the last sign-in and which teams the user touched most recently.
type State struct {
	AccessToken string   `yaml:"access_token,omitempty"`
	UserID      string   `yaml:"user_id,omitempty"`
	Email       string   `yaml:"email,omitempty"`
	CurrentTeam string   `yaml:"current_team,omitempty"`
	RecentTeams []string `yaml:"recent_teams,omitempty"`
}

// StatePath returns the state file location.
func StatePath() string {
	dir := GlobalDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "state.yaml")
}

// LoadState reads the state file; a missing file is an empty state.
func LoadState() (*State, error) {
	st := &State{}
	path := StatePath()
	if path == "" {
		return st, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Save writes the state file atomically so a crash mid-write never leaves a
// truncated file behind.
func (s *State) Save() error {
	path := StatePath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// TouchTeam records a team as most recently used, keeping the list short and
// free of duplicates.
func (s *State) TouchTeam(team string) {
	if team == "" {
		return
	}
	recent := []string{team}
	for _, t := range s.RecentTeams {
		if t == team {
			continue
		}
		recent = append(recent, t)
		if len(recent) == maxRecentTeams {
			break
		}
	}
	s.RecentTeams = recent
}
