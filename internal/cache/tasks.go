package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/store"
)

// SaveTask creates or updates a task. A blank ID gets a client-generated
// UUID so creates work fully offline and replay idempotently.
func (c *Cache) SaveTask(ctx context.Context, task *models.Task) error {
	if task.Title == "" {
		return fmt.Errorf("save task: empty title")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	rec := taskRecord(task)
	if err := c.save(ctx, models.TableTasks, rec); err != nil {
		return err
	}
	task.CreatedAt = rec.CreatedAt
	task.UpdatedAt = rec.UpdatedAt
	return nil
}

// Tasks returns a user's tasks from the local store.
func (c *Cache) Tasks(userID string) ([]models.Task, error) {
	return c.queryTasks(store.Filter{UserID: userID})
}

// TasksForDate returns a user's tasks due on a given day. The read is local
// and instant; call Refresh to fold in remote changes.
func (c *Cache) TasksForDate(userID, date string) ([]models.Task, error) {
	return c.queryTasks(store.Filter{UserID: userID, Date: date})
}

// OpenTasks returns a user's incomplete tasks.
func (c *Cache) OpenTasks(userID string) ([]models.Task, error) {
	completed := false
	return c.queryTasks(store.Filter{UserID: userID, Completed: &completed})
}

// Task returns a single task, or nil when absent.
func (c *Cache) Task(id string) (*models.Task, error) {
	rec, err := c.store.GetRecord(models.TableTasks, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return recordTask(rec), nil
}

// CompleteTask marks a task done and queues the update.
func (c *Cache) CompleteTask(ctx context.Context, id string) error {
	rec, err := c.store.GetRecord(models.TableTasks, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("complete task: %s not found", id)
	}
	rec.Completed = true
	return c.save(ctx, models.TableTasks, rec)
}

// DeleteTask removes a task locally and queues the remote delete.
func (c *Cache) DeleteTask(ctx context.Context, id, userID string) error {
	return c.delete(ctx, models.TableTasks, id, userID)
}

func (c *Cache) queryTasks(f store.Filter) ([]models.Task, error) {
	recs, err := c.store.Records(models.TableTasks, f)
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, *recordTask(&recs[i]))
	}
	return tasks, nil
}

func taskRecord(t *models.Task) *models.Record {
	return &models.Record{
		ID:        t.ID,
		UserID:    t.UserID,
		Date:      t.DueDate,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Data: map[string]any{
			"title":    t.Title,
			"notes":    t.Notes,
			"priority": t.Priority,
		},
	}
}

func recordTask(rec *models.Record) *models.Task {
	t := &models.Task{
		ID:        rec.ID,
		UserID:    rec.UserID,
		DueDate:   rec.Date,
		Completed: rec.Completed,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	t.Title, _ = rec.Data["title"].(string)
	t.Notes, _ = rec.Data["notes"].(string)
	t.Priority, _ = rec.Data["priority"].(string)
	return t
}
