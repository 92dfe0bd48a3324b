package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/output"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show store and sync state",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if statusJSON {
			return output.JSON(stats)
		}

		output.Title("daybook status")
		for table, count := range stats.Records {
			output.Info("  %-18s %d", table, count)
		}
		output.Info("  pending changes    %d", stats.PendingActions)
		if stats.DeadLetters > 0 {
			output.Warning("  dead-lettered      %d (run 'daybook sync retry')", stats.DeadLetters)
		}
		if stats.LastFullSync != nil {
			output.Subtle("  last full sync     %s", stats.LastFullSync.Format("2006-01-02 15:04:05"))
		} else {
			output.Subtle("  last full sync     never")
		}

		client := newRemoteClient()
		if client == nil {
			output.Subtle("  backend            not configured")
			return nil
		}
		manager := newManager(st, client)
		if manager.Online(cmd.Context()) {
			output.Success("  backend            online")
		} else {
			output.Warning("  backend            offline")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "JSON output")
	rootCmd.AddCommand(statusCmd)
}
