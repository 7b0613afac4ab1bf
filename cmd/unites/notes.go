package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/gitinfo"
	"github.com/fac-31/Pro0929-CLI-Unites/internal/store"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title> <body>",
		Short: "Capture a note with the current git context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			team, _ := cmd.Flags().GetString("team")
			personal, _ := cmd.Flags().GetBool("personal")

			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			// An explicit --team wins; otherwise fall back to the team
			// selected with "team switch" unless --personal opts out.
			if team == "" && !personal {
				team = env.state.CurrentTeam
			}

			ctx := cmd.Context()
			git := gitinfo.Detect(ctx)

			id, err := env.store.AddNote(ctx, store.NoteInput{
				Title:       args[0],
				Body:        args[1],
				Tags:        tags,
				GitCommit:   git.Commit,
				GitBranch:   git.Branch,
				ProjectPath: git.ProjectPath,
				Team:        team,
			})
			if err != nil {
				return err
			}

			if team != "" {
				env.state.TouchTeam(team)
				if err := env.state.Save(); err != nil {
					log.Printf("Warning: could not update session state: %v", err)
				}
			}

			fmt.Printf("Saved note %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringSliceP("tags", "t", nil, "Tags for the note")
	cmd.Flags().String("team", "", "Team to share the note with (id, slug or name)")
	cmd.Flags().Bool("personal", false, "Keep the note personal even when a team is selected")

	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			tag, _ := cmd.Flags().GetString("tag")
			team, _ := cmd.Flags().GetString("team")

			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			notes, err := env.store.ListNotes(cmd.Context(), store.ListFilter{
				Limit: limit,
				Tag:   tag,
				Team:  team,
			})
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No notes found.")
				return nil
			}

			for _, n := range notes {
				printNoteLine(n)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum notes to show")
	cmd.Flags().String("tag", "", "Only notes with this exact tag")
	cmd.Flags().String("team", "", "Only notes of this team")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one note in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			note, err := env.store.GetNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if note == nil {
				return fmt.Errorf("note %s not found", args[0])
			}

			fmt.Printf("%s\n", note.Title)
			fmt.Printf("%s\n\n", strings.Repeat("=", len(note.Title)))
			fmt.Println(note.Body)
			fmt.Println()
			if len(note.Tags) > 0 {
				fmt.Printf("Tags:    %s\n", strings.Join(note.Tags, ", "))
			}
			if note.GitBranch != "" {
				fmt.Printf("Branch:  %s\n", note.GitBranch)
			}
			if note.GitCommit != "" {
				fmt.Printf("Commit:  %s\n", shortID(note.GitCommit))
			}
			if note.ProjectPath != "" {
				fmt.Printf("Project: %s\n", note.ProjectPath)
			}
			fmt.Printf("Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search note titles and bodies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, _ := cmd.Flags().GetString("team")

			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			notes, err := env.store.SearchNotes(cmd.Context(), args[0], team)
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No matches.")
				return nil
			}

			fmt.Printf("%d match(es):\n\n", len(notes))
			for _, n := range notes {
				printNoteLine(n)
			}
			return nil
		},
	}

	cmd.Flags().String("team", "", "Only search this team's notes")

	return cmd
}

func semanticCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Search notes by meaning instead of keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			if !cmd.Flags().Changed("limit") && env.cfg.Search.Limit > 0 {
				limit = env.cfg.Search.Limit
			}
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if !cmd.Flags().Changed("threshold") {
				threshold = env.cfg.Search.Threshold
			}

			results, err := env.store.SemanticSearch(cmd.Context(), args[0], limit, threshold)
			if errors.Is(err, store.ErrUnsupported) {
				return fmt.Errorf("semantic search needs the remote backend; configure remote access first")
			}
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}

			for _, r := range results {
				fmt.Printf("%.2f  ", r.Similarity)
				printNoteLine(r.Note)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum results")
	cmd.Flags().Float64("threshold", 0.3, "Minimum similarity (0-1)")

	return cmd
}

func printNoteLine(n store.Note) {
	line := fmt.Sprintf("%s  %s  %s", shortID(n.ID), n.CreatedAt.Local().Format("2006-01-02"), n.Title)
	if len(n.Tags) > 0 {
		line += "  [" + strings.Join(n.Tags, ", ") + "]"
	}
	fmt.Println(line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
