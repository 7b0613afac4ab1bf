package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

func teamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage teams (remote mode only)",
	}

	cmd.AddCommand(teamCreateCmd())
	cmd.AddCommand(teamSwitchCmd())
	cmd.AddCommand(teamListCmd())
	cmd.AddCommand(teamInfoCmd())
	cmd.AddCommand(teamRenameCmd())
	cmd.AddCommand(teamDeleteCmd())
	cmd.AddCommand(teamMembersCmd())
	cmd.AddCommand(teamAddMemberCmd())
	cmd.AddCommand(teamRemoveMemberCmd())

	return cmd
}

// runTeam wraps a team operation with the common open/close and the local
// mode error message.
func runTeam(cmd *cobra.Command, fn func(env *cliEnv) error) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	err = fn(env)
	if errors.Is(err, store.ErrUnsupported) {
		return fmt.Errorf("teams need the remote backend; configure remote access first")
	}
	return err
}

func teamCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a team owned by you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.CreateTeam(cmd.Context(), args[0], description)
				if err != nil {
					return err
				}
				env.state.TouchTeam(team.Name)
				if err := env.state.Save(); err != nil {
					log.Printf("Warning: could not update session state: %v", err)
				}
				if team.Slug != "" {
					fmt.Printf("Created team %q (slug %s)\n", team.Name, team.Slug)
				} else {
					fmt.Printf("Created team %q\n", team.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("description", "d", "", "What the team is about")

	return cmd
}

func teamSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <team>",
		Short: "Make a team the default for new notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.GetTeam(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				env.state.CurrentTeam = team.Name
				env.state.TouchTeam(team.Name)
				if err := env.state.Save(); err != nil {
					return fmt.Errorf("failed to save session state: %w", err)
				}
				fmt.Printf("Now working in %q\n", team.Name)
				return nil
			})
		},
	}
}

func teamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List teams you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				teams, err := env.store.ListUserTeams(cmd.Context())
				if err != nil {
					return err
				}
				if len(teams) == 0 {
					fmt.Println("You are not a member of any team.")
					return nil
				}
				for _, t := range teams {
					if t.Slug != "" {
						fmt.Printf("%s  (%s)\n", t.Name, t.Slug)
					} else {
						fmt.Println(t.Name)
					}
				}
				return nil
			})
		},
	}
}

func teamInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <team>",
		Short: "Show a team's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.GetTeam(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Name:    %s\n", team.Name)
				if team.Slug != "" {
					fmt.Printf("Slug:    %s\n", team.Slug)
				}
				if team.Description != "" {
					fmt.Printf("About:   %s\n", team.Description)
				}
				if team.MemberCount > 0 {
					fmt.Printf("Members: %d\n", team.MemberCount)
				}
				fmt.Printf("Created: %s\n", team.CreatedAt.Local().Format("2006-01-02"))
				return nil
			})
		},
	}
}

func teamRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <team> <new-name>",
		Short: "Rename a team (owner or admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.UpdateTeam(cmd.Context(), args[0], args[1], description)
				if err != nil {
					return err
				}
				fmt.Printf("Team is now %q\n", team.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringP("description", "d", "", "New description")

	return cmd
}

func teamDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <team>",
		Short: "Delete a team (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("deleting a team cannot be undone; re-run with --yes to confirm")
			}
			return runTeam(cmd, func(env *cliEnv) error {
				if err := env.store.DeleteTeam(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted team %q\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().Bool("yes", false, "Confirm deletion")

	return cmd
}

func teamMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <team>",
		Short: "List a team's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				members, err := env.store.GetTeamMembers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(members) == 0 {
					fmt.Println("No members.")
					return nil
				}
				for _, m := range members {
					who := m.Email
					if who == "" {
						who = m.UserID
					}
					if m.Role != "" {
						fmt.Printf("%s  (%s)\n", who, m.Role)
					} else {
						fmt.Println(who)
					}
				}
				return nil
			})
		},
	}
}

func teamAddMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-member <team> <user-id>",
		Short: "Add a member directly (owner or admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleName, _ := cmd.Flags().GetString("role")
			role, err := parseRole(roleName)
			if err != nil {
				return err
			}
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.GetTeam(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := env.store.AddUserToTeam(cmd.Context(), team.ID, args[1], role); err != nil {
					return err
				}
				fmt.Printf("Added %s to %q\n", args[1], team.Name)
				return nil
			})
		},
	}

	cmd.Flags().String("role", string(store.RoleMember), "Role: member, admin or owner")

	return cmd
}

func teamRemoveMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <team> <user-id>",
		Short: "Remove a member (owner or admin, or yourself)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.GetTeam(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := env.store.RemoveUserFromTeam(cmd.Context(), team.ID, args[1]); err != nil {
					return err
				}
				fmt.Printf("Removed %s from %q\n", args[1], team.Name)
				return nil
			})
		},
	}
}

func parseRole(name string) (store.Role, error) {
	switch store.Role(name) {
	case store.RoleOwner, store.RoleAdmin, store.RoleMember:
		return store.Role(name), nil
	}
	return "", fmt.Errorf("unknown role %q (expected member, admin or owner)", name)
}
