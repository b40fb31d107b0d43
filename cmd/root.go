// Package cmd wires the recallkit command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/example/recallkit/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "recallkit",
	Short: "Spaced repetition scheduling engine",
	Long:  "Recallkit schedules flashcard reviews with SM-2, runs study sessions, and rolls session results up into learner progress.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides RECALLKIT_DB env var)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using the --db flag (highest
// priority), then the environment, then the default location.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	return store.DefaultDBPath()
}

// openStore opens the store at the resolved path.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	return store.Open(dbPath)
}
