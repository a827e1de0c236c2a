package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kidtasks/internal/calendar"
	"kidtasks/internal/database"
	"kidtasks/internal/engine"
	"kidtasks/internal/locking"
	"kidtasks/internal/repository"
)

// testClock is a settable wall clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type board struct {
	store  *repository.Store
	engine *engine.Engine
	dates  *calendar.Authority
	clock  *testClock
	svc    *BoardService
}

// noonChicago is 12:00 local time on the given day
func noonChicago(t *testing.T, day string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	d, err := time.ParseInLocation(calendar.DayLayout, day, loc)
	require.NoError(t, err)
	return d.Add(12 * time.Hour)
}

func newBoard(t *testing.T, opts ...engine.Option) *board {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))

	clock := &testClock{now: noonChicago(t, "2024-06-02")}
	base, err := calendar.New("America/Chicago")
	require.NoError(t, err)
	dates := base.WithClock(clock.Now)

	store := repository.NewStore(db)
	opts = append([]engine.Option{engine.WithTxRunner(store), engine.WithLocker(locking.NewKeyedMutex())}, opts...)
	eng := engine.New(store.Tasks, store.Meta, dates, opts...)

	return &board{
		store:  store,
		engine: eng,
		dates:  dates,
		clock:  clock,
		svc:    NewBoardService(store, eng, nil),
	}
}
