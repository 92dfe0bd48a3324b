package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/output"
	"github.com/quinn/daybook/internal/store"
)

var (
	syncStatusFlag bool
	syncPull       bool
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push queued changes to the backend",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		if syncStatusFlag {
			return printQueueStatus(st)
		}

		client := newRemoteClient()
		if client == nil {
			output.Error("not authenticated: set DAYBOOK_AUTH_KEY or run daybook auth")
			return fmt.Errorf("not authenticated")
		}

		manager := newManager(st, client)
		ok, result, err := manager.ForceSyncNow(cmd.Context(), currentUserID())
		if err != nil {
			output.Error("sync failed: %v", err)
			return err
		}
		if result == nil {
			output.Warning("backend unreachable, changes stay queued")
			return nil
		}

		if syncPull {
			c := newCache(st)
			tables := []string{models.TableTasks, models.TableWorkoutSessions, models.TableRoutines}
			if err := c.Refresh(cmd.Context(), currentUserID(), tables...); err != nil {
				output.Warning("pull failed: %v", err)
			}
		}

		if ok {
			output.Success("synced %d change(s)", result.Synced)
		} else {
			output.Warning("synced %d, failed %d (will retry)", result.Synced, len(result.Errors))
			for _, e := range result.Errors {
				output.Subtle("  %s/%s: %v", e.Table, e.RecordID, e.Err)
			}
		}
		if result.Waiting > 0 {
			output.Subtle("%d entr(ies) waiting on backoff or dead-letter", result.Waiting)
		}
		return nil
	},
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Revive dead-lettered queue entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		revived, err := st.RetryDeadLetters()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("revived %d entr(ies)", revived)
		return nil
	},
}

var syncHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently confirmed sync operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		entries, err := st.RecentSyncHistory(20)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if len(entries) == 0 {
			output.Info("no sync history")
			return nil
		}
		for _, e := range entries {
			output.Info("%s  %-6s %s/%s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Table, e.RecordID)
		}
		return nil
	},
}

func printQueueStatus(st *store.Store) error {
	actions, err := st.PendingActions()
	if err != nil {
		output.Error("%v", err)
		return err
	}
	if len(actions) == 0 {
		output.Success("queue empty")
		return nil
	}
	output.Title(fmt.Sprintf("%d queued change(s)", len(actions)))
	for _, a := range actions {
		line := fmt.Sprintf("%-6s %s/%s", a.Action, a.Table, a.RecordID)
		if a.RetryCount > 0 {
			line += fmt.Sprintf("  retries=%d last_error=%s", a.RetryCount, a.LastError)
		}
		if a.DeadLetter {
			line += "  [dead-letter]"
		}
		output.Info("%s", line)
	}
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncStatusFlag, "status", false, "show the queue instead of syncing")
	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "also pull remote changes after pushing")

	syncCmd.AddCommand(syncRetryCmd, syncHistoryCmd)
	rootCmd.AddCommand(syncCmd)
}
