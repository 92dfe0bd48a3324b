package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/dateparse"
	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/output"
)

var (
	workoutDuration  int
	workoutIntensity string
	workoutDate      string
	workoutNotes     string
	workoutListDate  string
	workoutJSON      bool
)

var workoutCmd = &cobra.Command{
	Use:     "workout",
	Short:   "Log and review workouts",
	GroupID: "records",
}

var workoutLogCmd = &cobra.Command{
	Use:   "log [activity...]",
	Short: "Log a workout session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		date := time.Now().Format("2006-01-02")
		if workoutDate != "" {
			date, err = dateparse.ParseDate(workoutDate)
			if err != nil {
				output.Error("%v", err)
				return err
			}
		}
		session := &models.WorkoutSession{
			UserID:      currentUserID(),
			Activity:    strings.Join(args, " "),
			DurationMin: workoutDuration,
			Intensity:   workoutIntensity,
			Date:        date,
			Notes:       workoutNotes,
		}
		if err := newCache(st).SaveWorkout(cmd.Context(), session); err != nil {
			output.Error("%v", err)
			return err
		}
		autoSyncAfterMutation()
		output.Success("logged %s", session.ID)
		return nil
	},
}

var workoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workout sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		c := newCache(st)
		var sessions []models.WorkoutSession
		if workoutListDate != "" {
			sessions, err = c.WorkoutsForDate(currentUserID(), workoutListDate)
		} else {
			sessions, err = c.Workouts(currentUserID())
		}
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if workoutJSON {
			return output.JSON(sessions)
		}
		if len(sessions) == 0 {
			output.Info("no workouts")
			return nil
		}
		for i := range sessions {
			output.Info("%s  %s", sessions[i].ID[:8], output.FormatWorkout(&sessions[i]))
		}
		return nil
	},
}

var workoutRmCmd = &cobra.Command{
	Use:   "rm [session-id...]",
	Short: "Delete workout sessions",
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
			if err := c.DeleteWorkout(cmd.Context(), id, currentUserID()); err != nil {
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
	workoutLogCmd.Flags().IntVarP(&workoutDuration, "duration", "t", 0, "duration in minutes")
	workoutLogCmd.Flags().StringVarP(&workoutIntensity, "intensity", "i", "", "intensity (easy, moderate, hard)")
	workoutLogCmd.Flags().StringVarP(&workoutDate, "date", "d", "", "session date (default today)")
	workoutLogCmd.Flags().StringVarP(&workoutNotes, "notes", "n", "", "free-form notes")

	workoutListCmd.Flags().StringVar(&workoutListDate, "date", "", "only sessions on this date")
	workoutListCmd.Flags().BoolVar(&workoutJSON, "json", false, "JSON output")

	workoutCmd.AddCommand(workoutLogCmd, workoutListCmd, workoutRmCmd)
	rootCmd.AddCommand(workoutCmd)
}
