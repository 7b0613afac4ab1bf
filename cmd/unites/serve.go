package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fac-31/Pro0929-CLI-Unites/internal/web"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only activity feed over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if !cmd.Flags().Changed("addr") && env.cfg.Serve.Addr != "" {
				addr = env.cfg.Serve.Addr
			}

			fmt.Printf("Serving activity feed on http://%s\n", addr)
			return web.NewServer(env.store).Run(addr)
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8787", "Listen address")

	return cmd
}
