package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

func inviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite people to a team (remote mode only)",
	}

	cmd.AddCommand(inviteCreateCmd())
	cmd.AddCommand(inviteListCmd())

	return cmd
}

func inviteCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <team> <email>",
		Short: "Issue a join code for someone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleName, _ := cmd.Flags().GetString("role")
			role, err := parseRole(roleName)
			if err != nil {
				return err
			}
			return runTeam(cmd, func(env *cliEnv) error {
				inv, err := env.store.CreateInvitation(cmd.Context(), args[0], args[1], role)
				if err != nil {
					return err
				}
				fmt.Printf("Invitation code: %s\n", inv.Code)
				fmt.Printf("Expires:         %s\n", inv.ExpiresAt.Local().Format("2006-01-02 15:04"))
				fmt.Printf("\nShare the code with %s; they join with: unites join %s\n", args[1], inv.Code)
				return nil
			})
		},
	}

	cmd.Flags().String("role", string(store.RoleMember), "Role granted on joining")

	return cmd
}

func inviteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <team>",
		Short: "List a team's invitations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				invs, err := env.store.ListInvitations(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(invs) == 0 {
					fmt.Println("No invitations.")
					return nil
				}
				now := time.Now()
				for _, inv := range invs {
					status := "active"
					switch {
					case inv.RedeemedAt != nil:
						status = "redeemed"
					case !now.Before(inv.ExpiresAt):
						status = "expired"
					}
					fmt.Printf("%s  %-24s  %-8s  %s\n", inv.Code, inv.Email, status, inv.ExpiresAt.Local().Format("2006-01-02"))
				}
				return nil
			})
		},
	}
}

func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a team with an invitation code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, func(env *cliEnv) error {
				team, err := env.store.AcceptInvitation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				env.state.TouchTeam(team.Name)
				if err := env.state.Save(); err != nil {
					log.Printf("Warning: could not update session state: %v", err)
				}
				fmt.Printf("Welcome to %q!\n", team.Name)
				return nil
			})
		},
	}
}
