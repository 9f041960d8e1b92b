package main

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"git.wyat.me/object-store/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the object store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			if !cmd.Flags().Changed("addr") {
				addr = r.Config.Server.Addr
			}
			srv := server.New(r.Store, r.Log)

			r.Log.WithFields(logrus.Fields{
				"addr":    addr,
				"root":    r.Root,
				"backend": r.Config.Storage.Backend,
			}).Info("listening")
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (default server.addr or $PORT)")

	return cmd
}
