package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/tree"
)

func newLsTreeCmd(g *globalFlags) *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] <tree>",
		Short: "List the entries of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := tree.Read(r.Store, args[0])
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries, nameOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")

	return cmd
}

// printEntries writes entries the way git ls-tree does, with the mode
// zero-padded to six digits.
func printEntries(w io.Writer, entries []object.TreeEntry, nameOnly bool) {
	for _, e := range entries {
		if nameOnly {
			fmt.Fprintln(w, e.Name)
			continue
		}
		mode := string(e.Mode)
		for len(mode) < 6 {
			mode = "0" + mode
		}
		fmt.Fprintf(w, "%s %s %s\t%s\n", mode, e.Mode.Type(), e.SHA, e.Name)
	}
}
