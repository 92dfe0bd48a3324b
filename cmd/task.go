package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/dateparse"
	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/output"
)

var (
	taskNotes    string
	taskPriority string
	taskDue      string
	taskDate     string
	taskAll      bool
	taskJSON     bool
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Short:   "Manage tasks",
	GroupID: "records",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title...]",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		due := ""
		if taskDue != "" {
			due, err = dateparse.ParseDate(taskDue)
			if err != nil {
				output.Error("%v", err)
				return err
			}
		}

		task := &models.Task{
			UserID:   currentUserID(),
			Title:    strings.Join(args, " "),
			Notes:    taskNotes,
			Priority: taskPriority,
			DueDate:  due,
		}
		if err := newCache(st).SaveTask(cmd.Context(), task); err != nil {
			output.Error("%v", err)
			return err
		}
		autoSyncAfterMutation()
		output.Success("added %s", task.ID)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		c := newCache(st)
		var tasks []models.Task
		switch {
		case taskDate != "":
			tasks, err = c.TasksForDate(currentUserID(), taskDate)
		case taskAll:
			tasks, err = c.Tasks(currentUserID())
		default:
			tasks, err = c.OpenTasks(currentUserID())
		}
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if taskJSON {
			return output.JSON(tasks)
		}
		if len(tasks) == 0 {
			output.Info("no tasks")
			return nil
		}
		for i := range tasks {
			output.Info("%s  %s", tasks[i].ID[:8], output.FormatTask(&tasks[i]))
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id...]",
	Short: "Mark tasks complete",
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
			if err := c.CompleteTask(cmd.Context(), id); err != nil {
				output.Error("%v", err)
				continue
			}
			output.Success("done %s", id)
		}
		autoSyncAfterMutation()
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [task-id...]",
	Short: "Delete tasks",
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
			if err := c.DeleteTask(cmd.Context(), id, currentUserID()); err != nil {
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
	taskAddCmd.Flags().StringVarP(&taskNotes, "notes", "n", "", "free-form notes")
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "priority (low, medium, high)")
	taskAddCmd.Flags().StringVarP(&taskDue, "due", "d", "", "due date (YYYY-MM-DD, today, +7d, friday, ...)")

	taskListCmd.Flags().StringVar(&taskDate, "date", "", "only tasks due on this date (YYYY-MM-DD)")
	taskListCmd.Flags().BoolVarP(&taskAll, "all", "a", false, "include completed tasks")
	taskListCmd.Flags().BoolVar(&taskJSON, "json", false, "JSON output")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
