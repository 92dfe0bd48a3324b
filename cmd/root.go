// Package cmd implements the daybook CLI. Commands read and write through
// the cache layer, which keeps every mutation durable locally before any
// network traffic happens.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Offline-first daily planner with background sync",
	Long: `daybook - tasks, workouts and routines that work fully offline.

Every change lands in the local store first and is synced to the backend in
the background. Losing connectivity never loses data; queued changes drain
automatically once the server is reachable again.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Record Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

// initBaseDir resolves the data directory: DAYBOOK_DIR env, else ~/.daybook.
func initBaseDir() {
	if v := os.Getenv("DAYBOOK_DIR"); v != "" {
		baseDir = v
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = filepath.Join(home, ".daybook")
}

// getBaseDir returns the data directory for the local store
func getBaseDir() string {
	return baseDir
}
