package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/config"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/postgrest"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/session"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "unites",
		Short:         "Unites - capture and share engineering knowledge from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(semanticCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(inviteCmd())
	rootCmd.AddCommand(joinCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cliEnv bundles everything a command needs: the opened store plus the
// loaded config and session state.
type cliEnv struct {
	store store.Store
	cfg   *config.Config
	state *config.State
}

func (e *cliEnv) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// openEnv loads configuration and opens the store in the mode it selects.
func openEnv() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	state, err := config.LoadState()
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	storeCfg := store.Config{
		RemoteURL:   cfg.Remote.URL,
		APIKey:      cfg.Remote.APIKey,
		AccessToken: state.AccessToken,
		LocalPath:   cfg.Local.Path,
		ForceLocal:  cfg.Local.Force,
	}

	var deps store.Deps
	if cfg.Remote.URL != "" && cfg.Remote.APIKey != "" && !cfg.Local.Force {
		client := postgrest.NewClient(cfg.Remote.URL, cfg.Remote.APIKey)
		if state.AccessToken != "" {
			client = client.WithToken(state.AccessToken)
		}
		deps.Identity = session.NewResolver(
			client,
			firstNonEmpty(cfg.Remote.UserID, state.UserID),
			state.AccessToken,
			firstNonEmpty(cfg.Remote.Email, state.Email),
		)
	}

	st, err := store.Open(storeCfg, deps)
	if err != nil {
		return nil, err
	}
	return &cliEnv{store: st, cfg: cfg, state: state}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
