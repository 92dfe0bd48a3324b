package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/config"
	"github.com/quinn/daybook/internal/output"
	"github.com/quinn/daybook/internal/syncer"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Run background sync until interrupted",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		client := newRemoteClient()
		if client == nil {
			output.Error("not authenticated: set DAYBOOK_AUTH_KEY or run daybook auth")
			return fmt.Errorf("not authenticated")
		}

		manager := newManager(st, client)
		scheduler := syncer.NewScheduler(manager, currentUserID(),
			config.GetAutoSyncInterval(), config.GetAutoSyncDebounce())

		scheduler.Start(cmd.Context())
		defer scheduler.Stop()

		if config.GetAutoSyncOnStart() {
			scheduler.Notify()
		}

		output.Info("watching (interval %s); Ctrl-C to stop", config.GetAutoSyncInterval())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
