package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/store"
)

// SaveWorkout logs or updates a workout session.
func (c *Cache) SaveWorkout(ctx context.Context, session *models.WorkoutSession) error {
	if session.Activity == "" {
		return fmt.Errorf("save workout: empty activity")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	rec := workoutRecord(session)
	if err := c.save(ctx, models.TableWorkoutSessions, rec); err != nil {
		return err
	}
	session.CreatedAt = rec.CreatedAt
	session.UpdatedAt = rec.UpdatedAt
	return nil
}

// Workouts returns a user's workout sessions from the local store.
func (c *Cache) Workouts(userID string) ([]models.WorkoutSession, error) {
	return c.queryWorkouts(store.Filter{UserID: userID})
}

// WorkoutsForDate returns a user's sessions logged on a given day.
func (c *Cache) WorkoutsForDate(userID, date string) ([]models.WorkoutSession, error) {
	return c.queryWorkouts(store.Filter{UserID: userID, Date: date})
}

// DeleteWorkout removes a session locally and queues the remote delete.
func (c *Cache) DeleteWorkout(ctx context.Context, id, userID string) error {
	return c.delete(ctx, models.TableWorkoutSessions, id, userID)
}

func (c *Cache) queryWorkouts(f store.Filter) ([]models.WorkoutSession, error) {
	recs, err := c.store.Records(models.TableWorkoutSessions, f)
	if err != nil {
		return nil, err
	}
	sessions := make([]models.WorkoutSession, 0, len(recs))
	for i := range recs {
		sessions = append(sessions, *recordWorkout(&recs[i]))
	}
	return sessions, nil
}

func workoutRecord(w *models.WorkoutSession) *models.Record {
	return &models.Record{
		ID:        w.ID,
		UserID:    w.UserID,
		Date:      w.Date,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Data: map[string]any{
			"activity":     w.Activity,
			"duration_min": w.DurationMin,
			"intensity":    w.Intensity,
			"notes":        w.Notes,
		},
	}
}

func recordWorkout(rec *models.Record) *models.WorkoutSession {
	w := &models.WorkoutSession{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Date:      rec.Date,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	w.Activity, _ = rec.Data["activity"].(string)
	w.Intensity, _ = rec.Data["intensity"].(string)
	w.Notes, _ = rec.Data["notes"].(string)
	// JSON round-trips integers as float64
	switch v := rec.Data["duration_min"].(type) {
	case float64:
		w.DurationMin = int(v)
	case int:
		w.DurationMin = v
	}
	return w
}
