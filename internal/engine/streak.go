package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kidtasks/internal/calendar"
	"kidtasks/internal/metrics"
	"kidtasks/internal/models"
)

const opRecordCompletion = "record_completion"

// Outcome classifies a streak evaluation.
type Outcome string

const (
	OutcomeNone      Outcome = "none"      // the day is not perfect yet
	OutcomeUnchanged Outcome = "unchanged" // today's perfect day was already recorded
	OutcomeIncrement Outcome = "increment" // consecutive perfect day
	OutcomeRestart   Outcome = "restart"   // first perfect day, or a gap
)

// StreakResult reports the outcome of a streak evaluation.
type StreakResult struct {
	Updated bool                `json:"updated"`
	Outcome Outcome             `json:"outcome"`
	Streak  *models.StreakState `json:"streak,omitempty"`
}

// StreakTracker detects perfect days and maintains per-kid streaks.
type StreakTracker struct {
	run      *runner
	dates    DateSource
	observer StreakObserver
	logger   *slog.Logger
}

// RecordCompletion evaluates kidID's day after one of their tasks became done.
// An unknown kid fails with ErrNotFound when the TaskStore is a KidDirectory;
// otherwise it has no tasks and simply never has a perfect day.
func (t *StreakTracker) RecordCompletion(ctx context.Context, kidID, today string) (StreakResult, error) {
	if kidID == "" {
		return StreakResult{}, failure(t.logger, opRecordCompletion, ErrNotFound, errors.New("kid id is required"))
	}
	if !calendar.ValidDay(today) {
		return StreakResult{}, failure(t.logger, opRecordCompletion, ErrClockUnavailable, fmt.Errorf("invalid day %q", today))
	}

	unlock, err := t.run.lock(ctx, kidLockKey(kidID))
	if err != nil {
		return StreakResult{}, failure(t.logger, opRecordCompletion, ErrPersistenceUnavailable, err)
	}
	defer unlock()

	var result StreakResult
	err = t.run.within(ctx, func(tasks TaskStore, meta CycleMetaStore) error {
		var err error
		result, err = t.evaluate(ctx, tasks, meta, kidID, today)
		return err
	})
	if err != nil {
		return StreakResult{}, failure(t.logger, opRecordCompletion, classify(err), err)
	}
	t.publish(ctx, result)
	return result, nil
}

// evaluate runs the perfect-day check and streak update against the given
// stores. The caller holds the kid lock.
func (t *StreakTracker) evaluate(ctx context.Context, tasks TaskStore, meta CycleMetaStore, kidID, today string) (StreakResult, error) {
	list, err := tasks.ListTasks(ctx, kidID)
	if err != nil {
		return StreakResult{}, fmt.Errorf("list tasks: %w", err)
	}
	if len(list) == 0 {
		if dir, ok := tasks.(KidDirectory); ok {
			exists, err := dir.KidExists(ctx, kidID)
			if err != nil {
				return StreakResult{}, fmt.Errorf("look up kid: %w", err)
			}
			if !exists {
				return StreakResult{}, fmt.Errorf("kid %q: %w", kidID, ErrNotFound)
			}
		}
	}
	if !isPerfectDay(list) {
		metrics.StreakTransitions.WithLabelValues(string(OutcomeNone)).Inc()
		return StreakResult{Outcome: OutcomeNone}, nil
	}

	current, err := meta.GetStreak(ctx, kidID)
	if err != nil {
		return StreakResult{}, fmt.Errorf("read streak: %w", err)
	}
	state := models.NewStreakState(kidID)
	if current != nil {
		state = *current
		state.KidID = kidID
	}

	next, outcome := advance(state, today, t.dates.DayDiff)
	metrics.StreakTransitions.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeUnchanged {
		return StreakResult{Outcome: outcome, Streak: &state}, nil
	}

	if err := meta.PutStreak(ctx, next); err != nil {
		return StreakResult{}, fmt.Errorf("write streak: %w", err)
	}
	return StreakResult{Updated: true, Outcome: outcome, Streak: &next}, nil
}

// publish reports a committed streak change. Must run after the store commit.
func (t *StreakTracker) publish(ctx context.Context, result StreakResult) {
	if !result.Updated || result.Streak == nil {
		return
	}
	metrics.PerfectDaysTotal.Inc()
	t.logger.Info("perfect day recorded",
		slog.String("kid_id", result.Streak.KidID),
		slog.String("day", result.Streak.LastPerfectDate),
		slog.Int("streak", result.Streak.StreakCount),
		slog.Int("longest", result.Streak.LongestStreak),
		slog.String("outcome", string(result.Outcome)))
	if t.observer != nil {
		t.observer.StreakUpdated(ctx, *result.Streak, result.Outcome)
	}
}

// isPerfectDay reports whether every active task is done and at least one is active.
func isPerfectDay(tasks []models.Task) bool {
	active, done := 0, 0
	for _, task := range tasks {
		if !task.IsActive {
			continue
		}
		active++
		if task.IsDone {
			done++
		}
	}
	return active > 0 && done == active
}

// advance applies one perfect day on today to s.
// gap 0 keeps s, gap 1 increments, anything else restarts at 1.
func advance(s models.StreakState, today string, dayDiff func(prev, curr string) (int, bool)) (models.StreakState, Outcome) {
	if s.LastPerfectDate == today {
		return s, OutcomeUnchanged
	}

	next := s
	outcome := OutcomeRestart
	if gap, ok := dayDiff(s.LastPerfectDate, today); ok && gap == 1 {
		next.StreakCount = s.StreakCount + 1
		outcome = OutcomeIncrement
	} else {
		next.StreakCount = 1
	}
	if next.StreakCount > next.LongestStreak {
		next.LongestStreak = next.StreakCount
	}
	next.LastPerfectDate = today
	return next, outcome
}

func kidLockKey(kidID string) string {
	return "kid:" + kidID
}
