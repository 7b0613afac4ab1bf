package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/config"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which backend is in use and who you are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			fmt.Println("Unites Status")
			fmt.Println("=============")
			if local, ok := env.store.(*store.Local); ok {
				fmt.Println("Mode:   local")
				fmt.Printf("DB:     %s\n", local.Path())
			} else {
				fmt.Println("Mode:   remote")
				fmt.Printf("URL:    %s\n", env.cfg.Remote.URL)
			}
			if env.state.Email != "" {
				fmt.Printf("User:   %s\n", env.state.Email)
			} else if env.state.UserID != "" {
				fmt.Printf("User:   %s\n", env.state.UserID)
			}
			if env.state.CurrentTeam != "" {
				fmt.Printf("Team:   %s\n", env.state.CurrentTeam)
			}
			if len(env.state.RecentTeams) > 0 {
				fmt.Printf("Recent: %s\n", strings.Join(env.state.RecentTeams, ", "))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Printf("Config file:    %s\n", config.GlobalConfigPath())
			fmt.Printf("State file:     %s\n", config.StatePath())
			if cfg.Remote.URL != "" {
				fmt.Printf("Remote URL:     %s\n", cfg.Remote.URL)
				fmt.Printf("API key:        %s\n", maskKey(cfg.Remote.APIKey))
			} else {
				fmt.Println("Remote URL:     (not configured)")
			}
			if cfg.Local.Path != "" {
				fmt.Printf("Local DB path:  %s\n", cfg.Local.Path)
			}
			fmt.Printf("Force local:    %v\n", cfg.Local.Force)
			fmt.Printf("Search limit:   %d\n", cfg.Search.Limit)
			fmt.Printf("Similarity:     %.2f\n", cfg.Search.Threshold)
			return nil
		},
	}
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
