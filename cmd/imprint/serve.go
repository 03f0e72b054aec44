package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imprint-ph/imprint-annotator/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the annotation API server",
	Long: `Start the annotation API server.

Example:
  imprint serve -c config.yaml
  imprint serve -c config.yaml -a :9090
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		zl, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer zl.Sync()
		logger := zl.Sugar()

		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := server.New(store, server.NewTokenAuthenticator(cfg.Auth), cfg, logger)
		logger.Infow("starting server",
			"addr", addr,
			"driver", cfg.Storage.Driver,
			"images_dir", cfg.Server.ImagesDir)
		return http.ListenAndServe(addr, srv.Handler())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Override the configured bind address")
}
