package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/engine"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image proxy functions",
		Long: `serve exposes generate-images and convert-to-outline over HTTP, calling
the upstream image API with a key held by the server (serve.vendor_key,
COLORKING_SERVE_VENDOR_KEY, or OPENAI_API_KEY). Point a client configured
with provider kind "proxy" at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}

			log, err := newLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			srv, err := engine.NewProxyServer(cfg, log)
			if err != nil {
				return err
			}

			l, err := net.Listen("tcp", cfg.Serve.Addr)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			log.Info("starting proxy",
				zap.String("addr", l.Addr().String()),
				zap.Bool("access_key", cfg.Serve.AccessKey != ""),
				zap.Bool("vendor_key", cfg.Serve.VendorKey != ""),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", l.Addr())

			return srv.Serve(cmd.Context(), l)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr)")

	return cmd
}
