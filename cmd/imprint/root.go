package main

import (
	"context"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/imprint-ph/imprint-annotator/internal/config"
	"github.com/imprint-ph/imprint-annotator/internal/domain"
	"github.com/imprint-ph/imprint-annotator/internal/mongostore"
	"github.com/imprint-ph/imprint-annotator/internal/repository"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imprint",
	Short: "Annotation sessions for sidewalk accessibility mapping",
	Long: strings.TrimSpace(`
Serve annotation sessions over street-view images: contributors confirm or
reject candidate obstruction boxes, draw their own, and every edit is merged
back into a shared ground-truth annotation list.
    `),
}

func main() {
	// A missing .env is fine; the config file is the canonical source.
	godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Config file")
	rootCmd.MarkPersistentFlagFilename("config")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(configFile)
}

// openStore opens the configured document store and returns it with its
// closer.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		store, client, err := mongostore.Connect(ctx, cfg.Storage.URI, cfg.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return client.Disconnect(context.Background()) }, nil
	default:
		store, err := repository.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}
