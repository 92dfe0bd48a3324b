package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/quinn/daybook/internal/config"
	"github.com/quinn/daybook/internal/syncer"
)

// autoSyncAfterMutation runs a quick push after a mutating command completes.
// Runs synchronously but with a short timeout. Errors are logged, not
// returned; queued changes simply wait for the next sync.
func autoSyncAfterMutation() {
	if !config.GetAutoSyncEnabled() {
		return
	}
	client := newRemoteClient()
	if client == nil {
		return
	}

	st, err := openStore()
	if err != nil {
		slog.Debug("autosync: open store", "err", err)
		return
	}
	defer st.Close()

	manager := syncer.New(st, client, syncer.Options{
		CallTimeout:       5 * time.Second, // short timeout for auto-sync
		DeadLetterCeiling: config.GetDeadLetterCeiling(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ok, result, err := manager.ForceSyncNow(ctx, currentUserID())
	switch {
	case err != nil:
		slog.Debug("autosync: push", "err", err)
	case result == nil:
		slog.Debug("autosync: offline, changes queued")
	case !ok:
		slog.Debug("autosync: partial push", "synced", result.Synced, "failed", len(result.Errors))
	case result.Synced > 0:
		slog.Debug("autosync: pushed", "synced", result.Synced)
	}
}
