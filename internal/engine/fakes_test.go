package engine

import (
	"context"
	"errors"
	"sort"
	"sync"

	"kidtasks/internal/calendar"
	"kidtasks/internal/models"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory TaskStore and CycleMetaStore with failure injection.
type memStore struct {
	mu        sync.Mutex
	tasks     map[string]models.Task
	lastReset string
	streaks   map[string]models.StreakState

	failList      error
	failSetFields error
	failReset     error
	failGetDate   error
	failSetDate   error
	failGetStreak error
	failPutStreak error

	resetCalls int
	putCalls   int
}

func newMemStore(tasks ...models.Task) *memStore {
	s := &memStore{
		tasks:   make(map[string]models.Task),
		streaks: make(map[string]models.StreakState),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memStore) ListTasks(_ context.Context, kidID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	var out []models.Task
	for _, t := range s.tasks {
		if kidID == "" || t.KidID == kidID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SetTaskFields(_ context.Context, taskID string, fields models.TaskFields) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetFields != nil {
		return nil, s.failSetFields
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	fields.Apply(&t)
	s.tasks[taskID] = t
	return &t, nil
}

func (s *memStore) ResetAllTasks(_ context.Context, fields models.TaskFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReset != nil {
		return s.failReset
	}
	s.resetCalls++
	for id, t := range s.tasks {
		fields.Apply(&t)
		s.tasks[id] = t
	}
	return nil
}

func (s *memStore) GetLastResetDate(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetDate != nil {
		return "", s.failGetDate
	}
	return s.lastReset, nil
}

func (s *memStore) SetLastResetDate(_ context.Context, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetDate != nil {
		return s.failSetDate
	}
	s.lastReset = day
	return nil
}

func (s *memStore) GetStreak(_ context.Context, kidID string) (*models.StreakState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetStreak != nil {
		return nil, s.failGetStreak
	}
	st, ok := s.streaks[kidID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *memStore) PutStreak(_ context.Context, state models.StreakState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPutStreak != nil {
		return s.failPutStreak
	}
	s.putCalls++
	s.streaks[state.KidID] = state
	return nil
}

func (s *memStore) task(id string) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

func (s *memStore) streak(kidID string) (models.StreakState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streaks[kidID]
	return st, ok
}

// WithinTx snapshots the store and restores it when fn fails.
func (s *memStore) WithinTx(_ context.Context, fn func(TaskStore, CycleMetaStore) error) error {
	s.mu.Lock()
	tasks := make(map[string]models.Task, len(s.tasks))
	for k, v := range s.tasks {
		tasks[k] = v
	}
	streaks := make(map[string]models.StreakState, len(s.streaks))
	for k, v := range s.streaks {
		streaks[k] = v
	}
	lastReset := s.lastReset
	s.mu.Unlock()

	if err := fn(s, s); err != nil {
		s.mu.Lock()
		s.tasks, s.streaks, s.lastReset = tasks, streaks, lastReset
		s.mu.Unlock()
		return err
	}
	return nil
}

// fixedDates is a DateSource pinned to one day.
type fixedDates struct {
	mu    sync.Mutex
	today string
	err   error
}

func (d *fixedDates) Today() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	return d.today, nil
}

func (d *fixedDates) DayDiff(prev, curr string) (int, bool) {
	return calendar.DayDiff(prev, curr)
}

func (d *fixedDates) set(day string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.today = day
}

type recordingObserver struct {
	mu      sync.Mutex
	updates []models.StreakState
}

func (o *recordingObserver) StreakUpdated(_ context.Context, state models.StreakState, _ Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, state)
}

func kidTasks(kidID string, n int, done int) []models.Task {
	tasks := make([]models.Task, n)
	for i := range tasks {
		tasks[i] = models.Task{
			ID:       kidID + "-t" + string(rune('a'+i)),
			KidID:    kidID,
			Title:    "task",
			Order:    i + 1,
			IsActive: true,
			IsDone:   i < done,
		}
	}
	return tasks
}
