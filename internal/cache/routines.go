package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quinn/daybook/internal/models"
	"github.com/quinn/daybook/internal/store"
)

// SaveRoutine creates or updates a recurring checklist item.
func (c *Cache) SaveRoutine(ctx context.Context, routine *models.Routine) error {
	if routine.Name == "" {
		return fmt.Errorf("save routine: empty name")
	}
	if routine.Cadence == "" {
		routine.Cadence = "daily"
	}
	if routine.ID == "" {
		routine.ID = uuid.NewString()
	}

	rec := routineRecord(routine)
	if err := c.save(ctx, models.TableRoutines, rec); err != nil {
		return err
	}
	routine.CreatedAt = rec.CreatedAt
	routine.UpdatedAt = rec.UpdatedAt
	return nil
}

// Routines returns a user's routines from the local store.
func (c *Cache) Routines(userID string) ([]models.Routine, error) {
	recs, err := c.store.Records(models.TableRoutines, store.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}
	routines := make([]models.Routine, 0, len(recs))
	for i := range recs {
		routines = append(routines, *recordRoutine(&recs[i]))
	}
	return routines, nil
}

// CheckRoutine marks a routine done for the given day.
func (c *Cache) CheckRoutine(ctx context.Context, id, date string) error {
	rec, err := c.store.GetRecord(models.TableRoutines, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("check routine: %s not found", id)
	}
	rec.Completed = true
	rec.Date = date
	return c.save(ctx, models.TableRoutines, rec)
}

// DeleteRoutine removes a routine locally and queues the remote delete.
func (c *Cache) DeleteRoutine(ctx context.Context, id, userID string) error {
	return c.delete(ctx, models.TableRoutines, id, userID)
}

func routineRecord(r *models.Routine) *models.Record {
	return &models.Record{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      r.Date,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Data: map[string]any{
			"name":    r.Name,
			"cadence": r.Cadence,
		},
	}
}

func recordRoutine(rec *models.Record) *models.Routine {
	r := &models.Routine{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Date:      rec.Date,
		Completed: rec.Completed,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	r.Name, _ = rec.Data["name"].(string)
	r.Cadence, _ = rec.Data["cadence"].(string)
	return r
}
