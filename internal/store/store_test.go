package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quinn/daybook/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(filepath.Join(dir, "daybook.db")); os.IsNotExist(err) {
		t.Error("database file not created")
	}
}

func TestInitIdempotentAndConcurrent(t *testing.T) {
	st := New(t.TempDir())
	defer st.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.Init()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Init failed: %v", err)
		}
	}

	// A record written after the racing Inits must land in one database.
	if _, err := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, false); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
}

func TestSaveRecordEnqueuesAtomically(t *testing.T) {
	st := newTestStore(t)

	rec := &models.Record{
		ID:     "task-1",
		UserID: "u1",
		Date:   "2026-08-31",
		Data:   map[string]any{"title": "write tests"},
	}
	actionID, err := st.SaveRecord(models.TableTasks, rec, true)
	if err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if actionID == "" {
		t.Fatal("expected a queued action ID")
	}

	got, err := st.GetRecord(models.TableTasks, "task-1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if !got.NeedsSync {
		t.Error("record should need sync")
	}
	if got.SyncStatus != models.SyncPending {
		t.Errorf("sync status = %q, want %q", got.SyncStatus, models.SyncPending)
	}
	if got.OfflineID != "task-1" {
		t.Errorf("offline id = %q, want task-1", got.OfflineID)
	}

	action, err := st.GetAction(actionID)
	if err != nil {
		t.Fatalf("GetAction failed: %v", err)
	}
	if action == nil {
		t.Fatal("queue entry missing for record flagged needs_sync")
	}
	if action.Action != models.ActionCreate {
		t.Errorf("action = %q, want create", action.Action)
	}
	if action.RecordID != "task-1" || action.Table != models.TableTasks {
		t.Errorf("queue entry routing wrong: %s/%s", action.Table, action.RecordID)
	}
}

func TestSaveRecordUpdateQueuesUpdate(t *testing.T) {
	st := newTestStore(t)

	rec := &models.Record{ID: "task-1", UserID: "u1", Data: map[string]any{"title": "v1"}}
	if _, err := st.SaveRecord(models.TableTasks, rec, true); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	created := rec.CreatedAt

	rec.Data["title"] = "v2"
	actionID, err := st.SaveRecord(models.TableTasks, rec, true)
	if err != nil {
		t.Fatalf("second SaveRecord failed: %v", err)
	}

	if !rec.CreatedAt.Equal(created) {
		t.Error("created_at changed on update")
	}

	action, err := st.GetAction(actionID)
	if err != nil || action == nil {
		t.Fatalf("GetAction: %v, %v", action, err)
	}
	if action.Action != models.ActionUpdate {
		t.Errorf("action = %q, want update", action.Action)
	}

	actions, err := st.PendingActions()
	if err != nil {
		t.Fatalf("PendingActions failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("queue length = %d, want 2", len(actions))
	}
}

func TestSaveRecordWithoutSyncFlag(t *testing.T) {
	st := newTestStore(t)

	rec := &models.Record{ID: "r1", UserID: "u1", Data: map[string]any{"title": "remote"}}
	actionID, err := st.SaveRecord(models.TableTasks, rec, false)
	if err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if actionID != "" {
		t.Error("markForSync=false must not enqueue")
	}

	got, _ := st.GetRecord(models.TableTasks, "r1")
	if got.NeedsSync {
		t.Error("record should not need sync")
	}
	if got.SyncStatus != models.SyncSynced {
		t.Errorf("sync status = %q, want synced", got.SyncStatus)
	}

	count, _ := st.CountPendingActions()
	if count != 0 {
		t.Errorf("queue length = %d, want 0", count)
	}
}

func TestPendingActionsFIFO(t *testing.T) {
	st := newTestStore(t)

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		if _, err := st.SaveRecord(models.TableTasks, &models.Record{ID: id, UserID: "u1"}, true); err != nil {
			t.Fatalf("SaveRecord %s failed: %v", id, err)
		}
	}

	actions, err := st.PendingActions()
	if err != nil {
		t.Fatalf("PendingActions failed: %v", err)
	}
	if len(actions) != len(ids) {
		t.Fatalf("queue length = %d, want %d", len(actions), len(ids))
	}
	for i, id := range ids {
		if actions[i].RecordID != id {
			t.Errorf("position %d = %s, want %s (insertion order broken)", i, actions[i].RecordID, id)
		}
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1", UserID: "u1"}, true); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	st2 := New(dir)
	if err := st2.Init(); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	defer st2.Close()

	rec, err := st2.GetRecord(models.TableTasks, "t1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec == nil || !rec.NeedsSync {
		t.Fatal("record (and its sync flag) did not survive reopen")
	}

	count, _ := st2.CountPendingActions()
	if count != 1 {
		t.Errorf("queue length after reopen = %d, want 1", count)
	}
}

func TestDeleteRecordQueuesDelete(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1", UserID: "u1"}, false); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	actionID, err := st.DeleteRecord(models.TableTasks, "t1", "u1", true)
	if err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}

	rec, _ := st.GetRecord(models.TableTasks, "t1")
	if rec != nil {
		t.Error("record still present after delete")
	}

	action, _ := st.GetAction(actionID)
	if action == nil {
		t.Fatal("delete was not queued")
	}
	if action.Action != models.ActionDelete {
		t.Errorf("action = %q, want delete", action.Action)
	}
	if len(action.Data) != 0 {
		t.Error("delete entry should carry no payload")
	}
}

func TestMarkRecordSynced(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, true); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if err := st.MarkRecordSynced(models.TableTasks, "t1"); err != nil {
		t.Fatalf("MarkRecordSynced failed: %v", err)
	}

	rec, _ := st.GetRecord(models.TableTasks, "t1")
	if rec.NeedsSync {
		t.Error("needs_sync not cleared")
	}
	if rec.SyncStatus != models.SyncSynced {
		t.Errorf("sync status = %q, want synced", rec.SyncStatus)
	}
	if rec.LastSynced == nil {
		t.Error("last_synced not stamped")
	}

	// Missing record is a no-op, not an error
	if err := st.MarkRecordSynced(models.TableTasks, "missing"); err != nil {
		t.Errorf("MarkRecordSynced on missing record: %v", err)
	}
}

func TestMarkActionFailed(t *testing.T) {
	st := newTestStore(t)

	actionID, err := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, true)
	if err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	nextRetry := time.Now().Add(time.Minute)
	if err := st.MarkActionFailed(actionID, os.ErrDeadlineExceeded, nextRetry, false); err != nil {
		t.Fatalf("MarkActionFailed failed: %v", err)
	}

	action, _ := st.GetAction(actionID)
	if action.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", action.RetryCount)
	}
	if action.LastError == "" {
		t.Error("last_error not recorded")
	}
	if action.NextRetryAt.IsZero() {
		t.Error("next_retry_at not set")
	}
	if action.DeadLetter {
		t.Error("entry should not be dead-lettered")
	}

	// Entry stays queued after failure
	count, _ := st.CountPendingActions()
	if count != 1 {
		t.Errorf("queue length = %d, want 1", count)
	}
}

func TestRetryDeadLetters(t *testing.T) {
	st := newTestStore(t)

	actionID, _ := st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, true)
	if err := st.MarkActionFailed(actionID, os.ErrInvalid, time.Now().Add(time.Hour), true); err != nil {
		t.Fatalf("MarkActionFailed failed: %v", err)
	}

	action, _ := st.GetAction(actionID)
	if !action.DeadLetter {
		t.Fatal("entry should be dead-lettered")
	}

	revived, err := st.RetryDeadLetters()
	if err != nil {
		t.Fatalf("RetryDeadLetters failed: %v", err)
	}
	if revived != 1 {
		t.Errorf("revived = %d, want 1", revived)
	}

	action, _ = st.GetAction(actionID)
	if action.DeadLetter || action.RetryCount != 0 || !action.NextRetryAt.IsZero() {
		t.Errorf("entry not fully revived: %+v", action)
	}
}

func TestRecordsFilter(t *testing.T) {
	st := newTestStore(t)

	seed := []models.Record{
		{ID: "a", UserID: "u1", Date: "2026-08-30"},
		{ID: "b", UserID: "u1", Date: "2026-08-31", Completed: true},
		{ID: "c", UserID: "u2", Date: "2026-08-31"},
	}
	for i := range seed {
		if _, err := st.SaveRecord(models.TableTasks, &seed[i], false); err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}
	}

	recs, err := st.Records(models.TableTasks, Filter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("user filter: got %d records, want 2", len(recs))
	}

	recs, _ = st.Records(models.TableTasks, Filter{UserID: "u1", Date: "2026-08-31"})
	if len(recs) != 1 || recs[0].ID != "b" {
		t.Errorf("date filter: got %+v, want [b]", recs)
	}

	completed := false
	recs, _ = st.Records(models.TableTasks, Filter{UserID: "u1", Completed: &completed})
	if len(recs) != 1 || recs[0].ID != "a" {
		t.Errorf("completed filter: got %+v, want [a]", recs)
	}

	// Other logical tables are isolated
	recs, _ = st.Records(models.TableRoutines, Filter{})
	if len(recs) != 0 {
		t.Errorf("routines table should be empty, got %d", len(recs))
	}
}

func TestSettingsAndStats(t *testing.T) {
	st := newTestStore(t)

	if v, err := st.Setting("missing"); err != nil || v != "" {
		t.Errorf("missing setting = %q, %v; want \"\", nil", v, err)
	}
	if err := st.SetSetting(SettingLastFullSync, "2026-08-31T10:00:00Z"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if v, _ := st.Setting(SettingLastFullSync); v != "2026-08-31T10:00:00Z" {
		t.Errorf("setting = %q", v)
	}

	st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, true)
	st.SaveRecord(models.TableWorkoutSessions, &models.Record{ID: "w1"}, false)

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Records[models.TableTasks] != 1 || stats.Records[models.TableWorkoutSessions] != 1 {
		t.Errorf("record counts wrong: %+v", stats.Records)
	}
	if stats.PendingActions != 1 {
		t.Errorf("pending = %d, want 1", stats.PendingActions)
	}
	if stats.LastFullSync == nil {
		t.Error("last full sync not parsed")
	}
}

func TestSyncHistory(t *testing.T) {
	st := newTestStore(t)

	entries := []models.SyncHistoryEntry{
		{Action: models.ActionCreate, Table: models.TableTasks, RecordID: "t1", UserID: "u1"},
		{Action: models.ActionDelete, Table: models.TableRoutines, RecordID: "r1", UserID: "u1"},
	}
	if err := st.RecordSyncHistory(entries); err != nil {
		t.Fatalf("RecordSyncHistory failed: %v", err)
	}

	got, err := st.RecentSyncHistory(10)
	if err != nil {
		t.Fatalf("RecentSyncHistory failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	// Newest first
	if got[0].RecordID != "r1" {
		t.Errorf("first entry = %s, want r1", got[0].RecordID)
	}
}

func TestClear(t *testing.T) {
	st := newTestStore(t)

	st.SaveRecord(models.TableTasks, &models.Record{ID: "t1"}, true)
	st.SetSetting("k", "v")

	if err := st.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, _ := st.CountPendingActions()
	if count != 0 {
		t.Error("queue not cleared")
	}
	rec, _ := st.GetRecord(models.TableTasks, "t1")
	if rec != nil {
		t.Error("records not cleared")
	}
}
