package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kidtasks/internal/database"
	"kidtasks/internal/engine"
	"kidtasks/internal/models"
)

var (
	_ engine.TaskStore      = (*TaskRepository)(nil)
	_ engine.KidDirectory   = (*TaskRepository)(nil)
	_ engine.CycleMetaStore = (*MetaRepository)(nil)
	_ engine.TxRunner       = (*Store)(nil)
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "kidtasks.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return NewStore(db)
}

func seedKid(t *testing.T, s *Store, name string, tasks int) (*models.Kid, []models.Task) {
	t.Helper()
	ctx := context.Background()
	kid := &models.Kid{Name: name, Color: "#123456"}
	if err := s.Kids.CreateKid(ctx, kid); err != nil {
		t.Fatalf("CreateKid() error = %v", err)
	}
	var out []models.Task
	for i := 0; i < tasks; i++ {
		task := &models.Task{
			KidID:     kid.ID,
			Title:     name + " task",
			IconType:  models.IconTypeEmoji,
			IconValue: "⭐",
			Order:     i + 1,
			IsActive:  true,
		}
		if err := s.Tasks.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
		out = append(out, *task)
	}
	return kid, out
}

func TestKidRepository(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	zed, _ := seedKid(t, s, "Zed", 0)
	ava, _ := seedKid(t, s, "Ava", 0)

	t.Run("ListKids orders by name", func(t *testing.T) {
		kids, err := s.Kids.ListKids(ctx)
		if err != nil {
			t.Fatalf("ListKids() error = %v", err)
		}
		if len(kids) != 2 || kids[0].ID != ava.ID || kids[1].ID != zed.ID {
			t.Errorf("ListKids() = %+v", kids)
		}
	})

	t.Run("GetKidByID missing", func(t *testing.T) {
		kid, err := s.Kids.GetKidByID(ctx, "missing")
		if err != nil || kid != nil {
			t.Errorf("GetKidByID() = %v, %v, want nil, nil", kid, err)
		}
	})

	t.Run("UpdateKid", func(t *testing.T) {
		name, photo := "Ava Rose", "data:image/png;base64,AAAA"
		kid, err := s.Kids.UpdateKid(ctx, ava.ID, models.KidPatch{Name: &name, PhotoDataURL: &photo})
		if err != nil {
			t.Fatalf("UpdateKid() error = %v", err)
		}
		if kid.Name != name || kid.PhotoDataURL != photo || kid.Color != "#123456" {
			t.Errorf("UpdateKid() = %+v", kid)
		}
		missing, err := s.Kids.UpdateKid(ctx, "missing", models.KidPatch{Name: &name})
		if err != nil || missing != nil {
			t.Errorf("UpdateKid(missing) = %v, %v", missing, err)
		}
	})

	t.Run("CountKids", func(t *testing.T) {
		n, err := s.Kids.CountKids(ctx)
		if err != nil || n != 2 {
			t.Errorf("CountKids() = %d, %v, want 2", n, err)
		}
	})
}

func TestDeleteKidCascades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	kid, _ := seedKid(t, s, "Ava", 3)
	other, _ := seedKid(t, s, "Ben", 2)
	if err := s.Meta.PutStreak(ctx, models.StreakState{KidID: kid.ID, StreakCount: 2, LastPerfectDate: "2024-06-01", LongestStreak: 2}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Kids.DeleteKid(ctx, kid.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteKid() = %v, %v", removed, err)
	}

	tasks, _ := s.Tasks.ListTasks(ctx, "")
	if len(tasks) != 2 || tasks[0].KidID != other.ID {
		t.Errorf("tasks after delete = %+v", tasks)
	}
	if st, _ := s.Meta.GetStreak(ctx, kid.ID); st != nil {
		t.Errorf("streak after delete = %+v", st)
	}

	removed, err = s.Kids.DeleteKid(ctx, kid.ID)
	if err != nil || removed {
		t.Errorf("second DeleteKid() = %v, %v, want false", removed, err)
	}
}

func TestTaskRepository(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kid, tasks := seedKid(t, s, "Ava", 3)

	t.Run("ListTasks by kid in order", func(t *testing.T) {
		got, err := s.Tasks.ListTasks(ctx, kid.ID)
		if err != nil {
			t.Fatalf("ListTasks() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("ListTasks() returned %d tasks, want 3", len(got))
		}
		for i, task := range got {
			if task.ID != tasks[i].ID || task.Order != i+1 || !task.IsActive || task.IsDone {
				t.Errorf("task %d = %+v", i, task)
			}
		}
	})

	t.Run("SetTaskFields", func(t *testing.T) {
		got, err := s.Tasks.SetTaskFields(ctx, tasks[0].ID, models.TaskFields{IsDone: models.Bool(true)})
		if err != nil {
			t.Fatalf("SetTaskFields() error = %v", err)
		}
		if !got.IsDone || !got.IsActive {
			t.Errorf("SetTaskFields() = %+v", got)
		}
		missing, err := s.Tasks.SetTaskFields(ctx, "missing", models.TaskFields{IsDone: models.Bool(true)})
		if err != nil || missing != nil {
			t.Errorf("SetTaskFields(missing) = %v, %v", missing, err)
		}
	})

	t.Run("UpdateTask", func(t *testing.T) {
		title := "Feed the cat"
		got, err := s.Tasks.UpdateTask(ctx, tasks[1].ID, models.TaskPatch{Title: &title})
		if err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}
		if got.Title != title || got.IconValue != "⭐" {
			t.Errorf("UpdateTask() = %+v", got)
		}
	})

	t.Run("ReorderTasks", func(t *testing.T) {
		n, err := s.Tasks.ReorderTasks(ctx, kid.ID, []string{tasks[2].ID, tasks[0].ID, tasks[1].ID, "foreign"})
		if err != nil {
			t.Fatalf("ReorderTasks() error = %v", err)
		}
		if n != 3 {
			t.Errorf("ReorderTasks() updated %d, want 3", n)
		}
		got, _ := s.Tasks.ListTasks(ctx, kid.ID)
		if got[0].ID != tasks[2].ID || got[1].ID != tasks[0].ID || got[2].ID != tasks[1].ID {
			t.Errorf("order after reorder = %v, %v, %v", got[0].ID, got[1].ID, got[2].ID)
		}
	})

	t.Run("NextOrder", func(t *testing.T) {
		n, err := s.Tasks.NextOrder(ctx, kid.ID)
		if err != nil || n != 4 {
			t.Errorf("NextOrder() = %d, %v, want 4", n, err)
		}
		n, err = s.Tasks.NextOrder(ctx, "nobody")
		if err != nil || n != 1 {
			t.Errorf("NextOrder(empty kid) = %d, %v, want 1", n, err)
		}
	})

	t.Run("ResetAllTasks", func(t *testing.T) {
		err := s.Tasks.ResetAllTasks(ctx, models.TaskFields{IsDone: models.Bool(false), IsActive: models.Bool(false)})
		if err != nil {
			t.Fatalf("ResetAllTasks() error = %v", err)
		}
		got, _ := s.Tasks.ListTasks(ctx, "")
		for _, task := range got {
			if task.IsDone || task.IsActive {
				t.Errorf("task after reset = %+v", task)
			}
		}
	})

	t.Run("DeleteTask", func(t *testing.T) {
		removed, err := s.Tasks.DeleteTask(ctx, tasks[0].ID)
		if err != nil || !removed {
			t.Errorf("DeleteTask() = %v, %v", removed, err)
		}
		removed, _ = s.Tasks.DeleteTask(ctx, tasks[0].ID)
		if removed {
			t.Error("DeleteTask() removed a missing task")
		}
	})
}

func TestTaskRepositoryKidExists(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kid, _ := seedKid(t, s, "Ava", 0)

	exists, err := s.Tasks.KidExists(ctx, kid.ID)
	if err != nil {
		t.Fatalf("KidExists() error = %v", err)
	}
	if !exists {
		t.Error("KidExists() = false for a kid without tasks")
	}

	exists, err = s.Tasks.KidExists(ctx, "ghost")
	if err != nil {
		t.Fatalf("KidExists() error = %v", err)
	}
	if exists {
		t.Error("KidExists() = true for an unknown kid")
	}
}

func TestMetaRepository(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	kid, _ := seedKid(t, s, "Ava", 0)

	last, err := s.Meta.GetLastResetDate(ctx)
	if err != nil || last != "" {
		t.Fatalf("GetLastResetDate() = %q, %v, want empty", last, err)
	}
	for _, day := range []string{"2024-06-01", "2024-06-02"} {
		if err := s.Meta.SetLastResetDate(ctx, day); err != nil {
			t.Fatalf("SetLastResetDate() error = %v", err)
		}
	}
	if last, _ = s.Meta.GetLastResetDate(ctx); last != "2024-06-02" {
		t.Errorf("GetLastResetDate() = %q, want 2024-06-02", last)
	}

	if st, err := s.Meta.GetStreak(ctx, kid.ID); err != nil || st != nil {
		t.Fatalf("GetStreak() = %v, %v, want nil", st, err)
	}
	want := models.StreakState{KidID: kid.ID, StreakCount: 1, LastPerfectDate: "2024-06-02", LongestStreak: 1}
	if err := s.Meta.PutStreak(ctx, want); err != nil {
		t.Fatalf("PutStreak() error = %v", err)
	}
	want.StreakCount, want.LongestStreak, want.LastPerfectDate = 2, 2, "2024-06-03"
	if err := s.Meta.PutStreak(ctx, want); err != nil {
		t.Fatalf("PutStreak() update error = %v", err)
	}
	got, err := s.Meta.GetStreak(ctx, kid.ID)
	if err != nil || got == nil || *got != want {
		t.Errorf("GetStreak() = %+v, %v, want %+v", got, err, want)
	}

	streaks, err := s.Meta.ListStreaks(ctx)
	if err != nil || len(streaks) != 1 {
		t.Errorf("ListStreaks() = %+v, %v", streaks, err)
	}
}

func TestStoreWithinTxRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	_, tasks := seedKid(t, s, "Ava", 1)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ts engine.TaskStore, ms engine.CycleMetaStore) error {
		if err := ts.ResetAllTasks(ctx, models.TaskFields{IsActive: models.Bool(false)}); err != nil {
			return err
		}
		if err := ms.SetLastResetDate(ctx, "2024-06-02"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	task, _ := s.Tasks.GetTaskByID(ctx, tasks[0].ID)
	if !task.IsActive {
		t.Error("task change survived a rolled back transaction")
	}
	if last, _ := s.Meta.GetLastResetDate(ctx); last != "" {
		t.Errorf("lastResetDate = %q after rollback", last)
	}
}

func TestSnapshotAndClear(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	empty, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if empty.LastResetDate != nil || len(empty.Kids) != 0 || empty.Kids == nil {
		t.Errorf("empty snapshot = %+v", empty)
	}

	kid, _ := seedKid(t, s, "Ava", 2)
	_ = s.Meta.SetLastResetDate(ctx, "2024-06-02")
	_ = s.Meta.PutStreak(ctx, models.StreakState{KidID: kid.ID, StreakCount: 1, LastPerfectDate: "2024-06-02", LongestStreak: 1})

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Kids) != 1 || len(snap.Tasks) != 2 || len(snap.Streaks) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.LastResetDate == nil || *snap.LastResetDate != "2024-06-02" {
		t.Errorf("snapshot lastResetDate = %v", snap.LastResetDate)
	}

	if err := s.Within(ctx, func(r Repos) error { return r.Clear(ctx) }); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := s.Kids.CountKids(ctx); n != 0 {
		t.Errorf("kids after clear = %d", n)
	}
}
