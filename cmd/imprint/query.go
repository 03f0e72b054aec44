package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/imprint-ph/imprint-annotator/internal/config"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Inspect the annotation database",
	Long: `Inspect the annotation database. Without arguments, prints summary
counts of images, contributors, sessions and edits. With a SQL argument, runs
it and prints the rows tab-separated. SQLite only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != config.DriverSQLite {
			return fmt.Errorf("query only supports the %s driver, configured driver is %s", config.DriverSQLite, cfg.Storage.Driver)
		}

		db, err := sql.Open("sqlite", cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 1 {
			return printQuery(cmd.Context(), db, args[0])
		}

		summaries := []struct {
			label string
			query string
		}{
			{"images", "select count(*) from images"},
			{"contributors", "select count(*) from contributors"},
			{"sessions by status", "select status, count(*) from sessions group by status"},
			{"edits by status", "select status, count(*) from annotation_edits group by status"},
		}
		for _, s := range summaries {
			fmt.Printf("-- %s\n", s.label)
			if err := printQuery(cmd.Context(), db, s.query); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func printQuery(ctx context.Context, db *sql.DB, query string, args ...interface{}) error {
	result, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer result.Close()
	columns, err := result.Columns()
	if err != nil {
		return err
	}
	if len(columns) > 1 {
		fmt.Println(strings.Join(columns, "\t"))
	}
	pointers := make([]interface{}, len(columns))
	container := make([]string, len(columns))
	for i := 0; i < len(columns); i++ {
		pointers[i] = &container[i]
	}
	for result.Next() {
		if err := result.Scan(pointers...); err != nil {
			return err
		}
		fmt.Println(strings.Join(container, "\t"))
	}
	return result.Err()
}
