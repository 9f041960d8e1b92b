package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/commit"
)

func newLogCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log <commit>",
		Short: "Show first-parent history starting at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			history, err := commit.Log(r.Store, args[0], limit)
			out := cmd.OutOrStdout()
			for i, h := range history {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "commit %s\n", h.SHA)
				fmt.Fprintf(out, "Author: %s\n", h.Commit.Author.Identity)
				fmt.Fprintf(out, "Date:   %s\n\n", h.Commit.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
				for _, line := range strings.Split(h.Commit.Message, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "stop after this many commits")

	return cmd
}
