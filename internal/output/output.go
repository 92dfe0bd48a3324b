// Package output provides styled terminal output helpers (success, error,
// warning, record formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quinn/daybook/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	syncStyles = map[models.SyncStatus]lipgloss.Style{
		models.SyncPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SyncSyncing: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.SyncSynced:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Title prints a bold section heading
func Title(text string) {
	fmt.Println(titleStyle.Render(text))
}

// Subtle prints de-emphasized detail text
func Subtle(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatSyncStatus formats a sync status with color
func FormatSyncStatus(s models.SyncStatus) string {
	style, ok := syncStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatTask renders a one-line task summary
func FormatTask(t *models.Task) string {
	var b strings.Builder
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	b.WriteString(check + " " + t.Title)
	if t.Priority != "" {
		b.WriteString(" " + subtleStyle.Render("("+t.Priority+")"))
	}
	if t.DueDate != "" {
		b.WriteString(" " + subtleStyle.Render("due "+t.DueDate))
	}
	return b.String()
}

// FormatWorkout renders a one-line workout summary
func FormatWorkout(w *models.WorkoutSession) string {
	line := fmt.Sprintf("%s %dmin", w.Activity, w.DurationMin)
	if w.Intensity != "" {
		line += " " + subtleStyle.Render("["+w.Intensity+"]")
	}
	if w.Date != "" {
		line += " " + subtleStyle.Render(w.Date)
	}
	return line
}

// FormatRoutine renders a one-line routine summary
func FormatRoutine(r *models.Routine) string {
	check := "[ ]"
	if r.Completed {
		check = "[x]"
	}
	return fmt.Sprintf("%s %s %s", check, r.Name, subtleStyle.Render("("+r.Cadence+")"))
}
