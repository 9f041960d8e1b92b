package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/commit"
)

func newCommitTreeCmd(g *globalFlags) *cobra.Command {
	var parent, author string
	var messages []string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>] -m <message> [<word>...]",
		Short: "Create a commit object for a tree",
		Long: `Create a commit object for a tree.

Words following the tree that are not flags continue the last -m
paragraph, so "-m hello world" records the message "hello world".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			sha, err := r.CommitComposer(commit.Config{Identity: author}).
				Compose(args[0], parent, commitMessage(messages, args[1:]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent commit (omit for a root commit)")
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "commit message; repeated flags become paragraphs")
	cmd.Flags().StringVar(&author, "author", "", "override identity (default: user.name <user.email>)")
	cmd.MarkFlagRequired("message")

	return cmd
}

// commitMessage joins -m paragraphs with a blank line and appends trailing
// words to the last paragraph.
func commitMessage(paragraphs, words []string) string {
	if len(words) > 0 && len(paragraphs) > 0 {
		last := len(paragraphs) - 1
		paragraphs = append(paragraphs[:last:last], paragraphs[last]+" "+strings.Join(words, " "))
	}
	return strings.Join(paragraphs, "\n\n")
}
