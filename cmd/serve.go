package cmd

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/pipeline"
	"github.com/chaos-io/bgremove/rembg"
	"github.com/chaos-io/bgremove/server"
)

func newServeCmd(opts options, configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the background removal HTTP API",
		Long: `Starts an HTTP API around the same pipeline the CLI uses.

Loaded models stay cached for the life of the process, so only the first
request per model pays the load cost.`,
		Example: `  # Start server on the configured address (default :8080)
  bgremove serve

  # Start server on a custom address
  bgremove serve --addr :3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := setupLogger(cmd.ErrOrStderr(), cfg); err != nil {
				return err
			}
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			backend, err := opts.newBackend(cfg)
			if err != nil {
				return err
			}
			cache := rembg.NewSessionCache(backend)
			defer func() {
				if err := cache.Close(); err != nil {
					slog.Warn("close sessions", "err", err)
				}
			}()

			srv, err := server.New(cfg.Server, pipeline.NewRemover(cache))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides config)")

	return cmd
}
