package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"git.wyat.me/object-store/config"
	"git.wyat.me/object-store/repo"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	root     string
	config   string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "gitobj",
		Short:         "Content-addressed object store with git-compatible trees and commits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultRoot := os.Getenv("REPO_ROOT")
	if defaultRoot == "" {
		defaultRoot = "."
	}
	root.PersistentFlags().StringVar(&g.root, "root", defaultRoot, "repository root directory")
	root.PersistentFlags().StringVar(&g.config, "config", "", "configuration file (default <root>/.git/config.toml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newInitCmd(g))
	root.AddCommand(newHashObjectCmd(g))
	root.AddCommand(newCatFileCmd(g))
	root.AddCommand(newLsTreeCmd(g))
	root.AddCommand(newWriteTreeCmd(g))
	root.AddCommand(newCommitTreeCmd(g))
	root.AddCommand(newLogCmd(g))
	root.AddCommand(newServeCmd(g))

	return root
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.config != "" {
		return config.Load(g.config, false)
	}
	return config.LoadRepo(g.root)
}

// newLogger builds the logrus logger described by cfg.Log, writing to the
// command's stderr.
func (g *globalFlags) newLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())

	levelName := cfg.Log.Level
	if g.logLevel != "" {
		levelName = g.logLevel
	}
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return log, nil
}

func (g *globalFlags) openRepo(cmd *cobra.Command) (*repo.Repo, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := g.newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return repo.Open(g.root, cfg, log)
}
