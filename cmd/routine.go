package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/output"
)

var (
	routineCadence string
	routineJSON    bool
)

var routineCmd = &cobra.Command{
	Use:     "routine",
	Short:   "Manage recurring routines",
	GroupID: "records",
}

var routineAddCmd = &cobra.Command{
	Use:   "add [name...]",
	Short: "Add a routine",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		routine := &models.Routine{
			UserID:  currentUserID(),
			Name:    strings.Join(args, " "),
			Cadence: routineCadence,
		}
		if err := newCache(st).SaveRoutine(cmd.Context(), routine); err != nil {
			output.Error("%v", err)
			return err
		}
		autoSyncAfterMutation()
		output.Success("added %s", routine.ID)
		return nil
	},
}

var routineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List routines",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		routines, err := newCache(st).Routines(currentUserID())
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if routineJSON {
			return output.JSON(routines)
		}
		if len(routines) == 0 {
			output.Info("no routines")
			return nil
		}
		for i := range routines {
			output.Info("%s  %s", routines[i].ID[:8], output.FormatRoutine(&routines[i]))
		}
		return nil
	},
}

var routineCheckCmd = &cobra.Command{
	Use:   "check [routine-id...]",
	Short: "Mark routines done for today",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		today := time.Now().Format("2006-01-02")
		c := newCache(st)
		for _, id := range args {
			if err := c.CheckRoutine(cmd.Context(), id, today); err != nil {
				output.Error("%v", err)
				continue
			}
			output.Success("checked %s", id)
		}
		autoSyncAfterMutation()
		return nil
	},
}

var routineRmCmd = &cobra.Command{
	Use:   "rm [routine-id...]",
	Short: "Delete routines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		c := newCache(st)
		for _, id := range args {
			if err := c.DeleteRoutine(cmd.Context(), id, currentUserID()); err != nil {
				output.Error("failed to delete %s: %v", id, err)
				continue
			}
			output.Success("deleted %s", id)
		}
		autoSyncAfterMutation()
		return nil
	},
}

func init() {
	routineAddCmd.Flags().StringVarP(&routineCadence, "cadence", "c", "daily", "cadence (daily, weekly)")
	routineListCmd.Flags().BoolVar(&routineJSON, "json", false, "JSON output")

	routineCmd.AddCommand(routineAddCmd, routineListCmd, routineCheckCmd, routineRmCmd)
	rootCmd.AddCommand(routineCmd)
}
