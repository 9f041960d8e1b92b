package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

func newCatFileCmd(g *globalFlags) *cobra.Command {
	var pretty, showType, showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | -t | -s) <object>",
		Short: "Show the content, type or size of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			typ, data, err := store.Read(r.Store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, typ)
			case showSize:
				fmt.Fprintln(out, len(data))
			case typ == object.TypeTree:
				entries, err := object.ParseTree(data, r.Store.Format().Hash)
				if err != nil {
					return fmt.Errorf("tree %s: %w", args[0], err)
				}
				printEntries(out, entries, false)
			default:
				out.Write(data)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print the object content")
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the payload size")
	cmd.MarkFlagsMutuallyExclusive("pretty", "type", "size")
	cmd.MarkFlagsOneRequired("pretty", "type", "size")

	return cmd
}
