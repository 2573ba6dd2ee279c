package main

import (
	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-resume-pdf/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the export pipeline over HTTP",
		Long: `Start an HTTP server with one rendering engine.

Routes:
  GET  /healthz       engine name and stage status
  POST /v1/export     markup body, PDF response (?title= names the file)
  POST /v1/sanitize   markup body, sanitized markup response

Requests that arrive while a render is running get 409 Conflict.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			p, err := a.newPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			return server.New(p, logger).Run(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}
