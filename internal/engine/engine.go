// Package engine implements the daily task cycle and the perfect-day streak
// tracker behind a small facade. Stores, locking and transactions are injected.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kidtasks/internal/models"
)

const opRecordTaskCompletion = "record_task_completion"

// Engine composes the date authority, the daily cycle and the streak tracker.
type Engine struct {
	run     *runner
	dates   DateSource
	cycle   *DailyCycle
	streaks *StreakTracker
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	tx       TxRunner
	locks    Locker
	policy   ResetPolicy
	observer StreakObserver
	logger   *slog.Logger
}

// WithTxRunner makes each reset and each completion commit atomically.
func WithTxRunner(tx TxRunner) Option {
	return func(s *settings) { s.tx = tx }
}

// WithLocker serializes mutations per kid and the reset globally.
func WithLocker(l Locker) Option {
	return func(s *settings) { s.locks = l }
}

// WithResetPolicy selects which flags the daily reset clears.
func WithResetPolicy(p ResetPolicy) Option {
	return func(s *settings) { s.policy = p }
}

// WithObserver registers a listener for persisted streak changes.
func WithObserver(o StreakObserver) Option {
	return func(s *settings) { s.observer = o }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New creates an Engine over the given stores and date source.
func New(tasks TaskStore, meta CycleMetaStore, dates DateSource, opts ...Option) *Engine {
	s := settings{policy: PolicyClearDone}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	logger := s.logger.With(slog.String("component", "engine"))

	run := &runner{tasks: tasks, meta: meta, tx: s.tx, locks: s.locks}
	return &Engine{
		run:   run,
		dates: dates,
		cycle: &DailyCycle{
			run:    run,
			dates:  dates,
			policy: s.policy,
			logger: logger,
		},
		streaks: &StreakTracker{
			run:      run,
			dates:    dates,
			observer: s.observer,
			logger:   logger,
		},
		logger: logger,
	}
}

// CheckAndReset runs the daily reset if the day has changed since the last one.
func (e *Engine) CheckAndReset(ctx context.Context) (ResetResult, error) {
	return e.cycle.CheckAndReset(ctx)
}

// RecordCompletion evaluates the streak of kidID for the given day.
func (e *Engine) RecordCompletion(ctx context.Context, kidID, today string) (StreakResult, error) {
	return e.streaks.RecordCompletion(ctx, kidID, today)
}

// Today returns the current calendar day from the engine's date authority.
func (e *Engine) Today() (string, error) {
	day, err := e.dates.Today()
	if err != nil {
		return "", &Error{Op: "today", Kind: ErrClockUnavailable, Err: err}
	}
	return day, nil
}

// CompletionResult reports the outcome of RecordTaskCompletion.
type CompletionResult struct {
	Task         models.Task  `json:"task"`
	Transitioned bool         `json:"transitioned"`
	Streak       StreakResult `json:"streak"`
}

// RecordTaskCompletion writes a task's done flag and, when the flag moves from
// false to true, evaluates the owning kid's streak in the same unit of work.
// An empty kidID is resolved from the task.
func (e *Engine) RecordTaskCompletion(ctx context.Context, kidID, taskID string, newIsDone bool) (CompletionResult, error) {
	if taskID == "" {
		return CompletionResult{}, failure(e.logger, opRecordTaskCompletion, ErrNotFound, errors.New("task id is required"))
	}

	// Resolve the day before touching storage so a clock failure writes nothing.
	var today string
	if newIsDone {
		var err error
		if today, err = e.dates.Today(); err != nil {
			return CompletionResult{}, failure(e.logger, opRecordTaskCompletion, ErrClockUnavailable, err)
		}
	}

	if kidID == "" {
		owner, err := e.ownerOf(ctx, taskID)
		if err != nil {
			return CompletionResult{}, failure(e.logger, opRecordTaskCompletion, classify(err), err)
		}
		kidID = owner
	}

	unlock, err := e.run.lock(ctx, kidLockKey(kidID))
	if err != nil {
		return CompletionResult{}, failure(e.logger, opRecordTaskCompletion, ErrPersistenceUnavailable, err)
	}
	defer unlock()

	var result CompletionResult
	err = e.run.within(ctx, func(tasks TaskStore, meta CycleMetaStore) error {
		list, err := tasks.ListTasks(ctx, kidID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		current := findTask(list, taskID)
		if current == nil {
			return fmt.Errorf("task %q of kid %q: %w", taskID, kidID, ErrNotFound)
		}

		updated, err := tasks.SetTaskFields(ctx, taskID, models.TaskFields{IsDone: &newIsDone})
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("task %q: %w", taskID, ErrNotFound)
		}
		result.Task = *updated

		if !newIsDone || current.IsDone {
			return nil
		}
		result.Transitioned = true
		result.Streak, err = e.streaks.evaluate(ctx, tasks, meta, kidID, today)
		return err
	})
	if err != nil {
		return CompletionResult{}, failure(e.logger, opRecordTaskCompletion, classify(err), err)
	}

	e.streaks.publish(ctx, result.Streak)
	return result, nil
}

func (e *Engine) ownerOf(ctx context.Context, taskID string) (string, error) {
	all, err := e.run.tasks.ListTasks(ctx, "")
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	task := findTask(all, taskID)
	if task == nil {
		return "", fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	return task.KidID, nil
}

func findTask(tasks []models.Task, taskID string) *models.Task {
	for i := range tasks {
		if tasks[i].ID == taskID {
			return &tasks[i]
		}
	}
	return nil
}

// classify maps an internal error to its kind. Anything that is not a
// missing record came from the stores.
func classify(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrPersistenceUnavailable
}
