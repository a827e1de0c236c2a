package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidtasks/internal/engine"
	"kidtasks/internal/models"
)

func addKid(t *testing.T, b *board, name string) *models.Kid {
	t.Helper()
	out, err := b.svc.Execute(context.Background(), AddKid{Name: name, Color: "#123456"})
	require.NoError(t, err)
	kid, ok := out.(*models.Kid)
	require.True(t, ok)
	require.NotEmpty(t, kid.ID)
	return kid
}

func addTask(t *testing.T, b *board, kidID, title string) *models.Task {
	t.Helper()
	out, err := b.svc.Execute(context.Background(), AddTask{KidID: kidID, Title: title, IconType: models.IconTypeEmoji, IconValue: "⭐"})
	require.NoError(t, err)
	task, ok := out.(*models.Task)
	require.True(t, ok)
	return task
}

func setDone(t *testing.T, b *board, taskID string, done bool) *models.Task {
	t.Helper()
	out, err := b.svc.Execute(context.Background(), UpdateTask{ID: taskID, Updates: models.TaskPatch{IsDone: models.Bool(done)}})
	require.NoError(t, err)
	return out.(*models.Task)
}

func streakOf(t *testing.T, b *board, kidID string) *models.StreakState {
	t.Helper()
	st, err := b.store.Meta.GetStreak(context.Background(), kidID)
	require.NoError(t, err)
	return st
}

func TestBoardAddTaskDefaults(t *testing.T) {
	b := newBoard(t)
	kid := addKid(t, b, "Ava")

	first := addTask(t, b, kid.ID, "Brush teeth")
	second := addTask(t, b, kid.ID, "Make bed")

	assert.Equal(t, 1, first.Order)
	assert.Equal(t, 2, second.Order)
	assert.True(t, first.IsActive)
	assert.False(t, first.IsDone)

	out, err := b.svc.Execute(context.Background(), AddTask{KidID: kid.ID, Title: "Read", IconType: models.IconTypeEmoji, IconValue: "📚", Order: intPtr(9), IsActive: models.Bool(false)})
	require.NoError(t, err)
	third := out.(*models.Task)
	assert.Equal(t, 9, third.Order)
	assert.False(t, third.IsActive)
}

func TestBoardAddTaskUnknownKid(t *testing.T) {
	b := newBoard(t)

	_, err := b.svc.Execute(context.Background(), AddTask{KidID: "ghost", Title: "Read", IconType: models.IconTypeEmoji, IconValue: "📚"})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestBoardAddWithTakenID(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	_, err := b.svc.Execute(ctx, AddKid{ID: "ava", Name: "Ava", Color: "#123456"})
	require.NoError(t, err)
	_, err = b.svc.Execute(ctx, AddKid{ID: "ava", Name: "Other Ava", Color: "#654321"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, engine.KindOf(err))

	task := AddTask{ID: "brush", KidID: "ava", Title: "Brush teeth", IconType: models.IconTypeEmoji, IconValue: "🪥"}
	_, err = b.svc.Execute(ctx, task)
	require.NoError(t, err)
	_, err = b.svc.Execute(ctx, task)
	require.ErrorIs(t, err, ErrConflict)

	kid, err := b.store.Kids.GetKidByID(ctx, "ava")
	require.NoError(t, err)
	assert.Equal(t, "Ava", kid.Name)
}

func TestBoardUpdateKid(t *testing.T) {
	b := newBoard(t)
	kid := addKid(t, b, "Ava")
	name := "Avery"

	out, err := b.svc.Execute(context.Background(), UpdateKid{ID: kid.ID, Updates: models.KidPatch{Name: &name}})
	require.NoError(t, err)
	updated := out.(*models.Kid)
	assert.Equal(t, "Avery", updated.Name)
	assert.Equal(t, kid.Color, updated.Color)

	_, err = b.svc.Execute(context.Background(), UpdateKid{ID: "ghost", Updates: models.KidPatch{Name: &name}})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestBoardPerfectDayStartsStreak(t *testing.T) {
	b := newBoard(t)
	kid := addKid(t, b, "Ava")
	t1 := addTask(t, b, kid.ID, "Brush teeth")
	t2 := addTask(t, b, kid.ID, "Make bed")

	assert.True(t, setDone(t, b, t1.ID, true).IsDone)
	assert.Nil(t, streakOf(t, b, kid.ID), "one open task left")

	setDone(t, b, t2.ID, true)
	st := streakOf(t, b, kid.ID)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.StreakCount)
	assert.Equal(t, "2024-06-02", st.LastPerfectDate)

	// Unchecking and checking again the same day counts once
	assert.False(t, setDone(t, b, t2.ID, false).IsDone)
	setDone(t, b, t2.ID, true)
	assert.Equal(t, 1, streakOf(t, b, kid.ID).StreakCount)
}

func TestBoardStreakAcrossDays(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	kid := addKid(t, b, "Ava")
	task := addTask(t, b, kid.ID, "Brush teeth")

	_, err := b.svc.Execute(ctx, ResetTasksIfNeeded{})
	require.NoError(t, err)
	setDone(t, b, task.ID, true)

	for i, day := range []string{"2024-06-03", "2024-06-04"} {
		b.clock.Set(noonChicago(t, day))
		out, err := b.svc.Execute(ctx, ResetTasksIfNeeded{})
		require.NoError(t, err)
		ack := out.(ResetAck)
		assert.True(t, ack.ResetPerformed)
		assert.Equal(t, day, ack.Today)

		got, err := b.store.Tasks.GetTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, got.IsDone, "reset clears done")

		setDone(t, b, task.ID, true)
		assert.Equal(t, i+2, streakOf(t, b, kid.ID).StreakCount)
	}

	// Skipping a day restarts the count but keeps the longest streak
	b.clock.Set(noonChicago(t, "2024-06-06"))
	_, err = b.svc.Execute(ctx, ResetTasksIfNeeded{})
	require.NoError(t, err)
	setDone(t, b, task.ID, true)

	st := streakOf(t, b, kid.ID)
	assert.Equal(t, 1, st.StreakCount)
	assert.Equal(t, 3, st.LongestStreak)
}

func TestBoardResetIsIdempotent(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	out, err := b.svc.Execute(ctx, ResetTasksIfNeeded{})
	require.NoError(t, err)
	assert.True(t, out.(ResetAck).ResetPerformed)

	out, err = b.svc.Execute(ctx, ResetTasksIfNeeded{})
	require.NoError(t, err)
	assert.False(t, out.(ResetAck).ResetPerformed)
	assert.True(t, out.(ResetAck).Success)
}

func TestBoardUpdateTaskDetails(t *testing.T) {
	b := newBoard(t)
	kid := addKid(t, b, "Ava")
	task := addTask(t, b, kid.ID, "Brush teeth")
	title := "Floss"

	out, err := b.svc.Execute(context.Background(), UpdateTask{ID: task.ID, Updates: models.TaskPatch{Title: &title, IsDone: models.Bool(true)}})
	require.NoError(t, err)
	updated := out.(*models.Task)
	assert.Equal(t, "Floss", updated.Title)
	assert.True(t, updated.IsDone)
	assert.NotNil(t, streakOf(t, b, kid.ID), "isDone still goes through the streak engine")
}

func TestBoardUpdateTaskNotFound(t *testing.T) {
	b := newBoard(t)
	title := "Floss"

	tests := []struct {
		name    string
		updates models.TaskPatch
	}{
		{name: "details", updates: models.TaskPatch{Title: &title}},
		{name: "completion", updates: models.TaskPatch{IsDone: models.Bool(true)}},
		{name: "empty", updates: models.TaskPatch{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.svc.Execute(context.Background(), UpdateTask{ID: "ghost", Updates: tt.updates})
			require.Error(t, err)
			assert.ErrorIs(t, err, engine.ErrNotFound)
		})
	}
}

func TestBoardDeleteKidIsIdempotent(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	kid := addKid(t, b, "Ava")
	task := addTask(t, b, kid.ID, "Brush teeth")
	setDone(t, b, task.ID, true)

	for range 2 {
		out, err := b.svc.Execute(ctx, DeleteKid{ID: kid.ID})
		require.NoError(t, err)
		assert.Equal(t, Ack{Success: true}, out)
	}

	snap, err := b.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Kids)
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Streaks)
}

func TestBoardDeleteTask(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	kid := addKid(t, b, "Ava")
	task := addTask(t, b, kid.ID, "Brush teeth")

	out, err := b.svc.Execute(ctx, DeleteTask{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, Ack{Success: true}, out)

	_, err = b.svc.Execute(ctx, DeleteTask{ID: task.ID})
	require.NoError(t, err)

	got, err := b.store.Tasks.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoardReorderTasks(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	kid := addKid(t, b, "Ava")
	other := addKid(t, b, "Ben")
	a := addTask(t, b, kid.ID, "A")
	c := addTask(t, b, kid.ID, "C")
	foreign := addTask(t, b, other.ID, "X")

	_, err := b.svc.Execute(ctx, ReorderTasks{KidID: kid.ID, TaskIDs: []string{c.ID, foreign.ID, a.ID}})
	require.NoError(t, err)

	tasks, err := b.store.Tasks.ListTasks(ctx, kid.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, c.ID, tasks[0].ID)
	assert.Equal(t, a.ID, tasks[1].ID)

	untouched, err := b.store.Tasks.GetTaskByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, untouched.Order)
}

func TestBoardSnapshot(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	snap, err := b.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.LastResetDate)

	seed, err := LoadSeed("")
	require.NoError(t, err)
	_, err = SeedIfEmpty(ctx, b.store, seed, "2024-06-02", nil)
	require.NoError(t, err)

	snap, err = b.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Kids, 2)
	assert.Equal(t, "Alice", snap.Kids[0].Name)
	assert.Len(t, snap.Tasks, 12)
	require.NotNil(t, snap.LastResetDate)
	assert.Equal(t, "2024-06-02", *snap.LastResetDate)
}

type bogusCommand struct{}

func (bogusCommand) Action() string  { return "bogus" }
func (bogusCommand) Validate() error { return nil }
func (bogusCommand) command()        {}

func TestBoardExecuteUnknownCommand(t *testing.T) {
	b := newBoard(t)
	_, err := b.svc.Execute(context.Background(), bogusCommand{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func intPtr(n int) *int {
	return &n
}
