package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"git.wyat.me/object-store/config"
	"git.wyat.me/object-store/repo"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	var hash, compression, backend string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if g.config != "" {
				loaded, err := config.ReadFile(g.config)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("hash") {
				cfg.Core.Hash = hash
			}
			if cmd.Flags().Changed("compression") {
				cfg.Core.Compression = compression
			}
			if cmd.Flags().Changed("backend") {
				cfg.Storage.Backend = config.Backend(backend)
			}
			if err := cfg.WithEnv().Validate(); err != nil {
				return err
			}

			existed, err := repo.Init(g.root, cfg)
			if err != nil {
				return err
			}
			if existed {
				fmt.Fprintln(cmd.OutOrStdout(), "Reinitialized existing repository")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Initialized repository")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "sha1", "object hash: sha1, sha256 or blake3")
	cmd.Flags().StringVar(&compression, "compression", "zlib", "object compression: zlib or zstd")
	cmd.Flags().StringVar(&backend, "backend", "loose", "storage backend: loose, sqlite, badger or minio")

	return cmd
}
