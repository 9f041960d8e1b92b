package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

func newHashObjectCmd(g *globalFlags) *cobra.Command {
	var write, stdin bool
	var typ string

	cmd := &cobra.Command{
		Use:   "hash-object [-w] [-t type] (--stdin | <file>)",
		Short: "Compute an object key and optionally store the object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			switch {
			case stdin && len(args) == 0:
				data, err = io.ReadAll(cmd.InOrStdin())
			case !stdin && len(args) == 1:
				data, err = os.ReadFile(args[0])
			default:
				return fmt.Errorf("hash-object needs exactly one of --stdin or <file>")
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			obj := &object.Object{Type: object.ObjectType(typ), Data: data}

			var sha string
			if write {
				r, err := g.openRepo(cmd)
				if err != nil {
					return err
				}
				defer r.Close()
				sha, err = store.Write(r.Store, obj.Type, obj.Data)
				if err != nil {
					return err
				}
			} else {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				format, err := cfg.Format()
				if err != nil {
					return err
				}
				sha, err = format.HashObject(obj)
				if err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the payload from standard input")
	cmd.Flags().StringVarP(&typ, "type", "t", string(object.TypeBlob), "object type")

	return cmd
}
