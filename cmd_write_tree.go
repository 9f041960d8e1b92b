package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWriteTreeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree",
		Short: "Store the repository root as a tree object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			sha, err := r.WriteTree()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}
}
