package engine

import (
	"context"
	"fmt"
	"log/slog"

	"kidtasks/internal/metrics"
)

const (
	opCheckAndReset = "check_and_reset"
	cycleLockKey    = "cycle"
)

// ResetResult reports the outcome of CheckAndReset.
type ResetResult struct {
	ResetPerformed bool   `json:"resetPerformed"`
	Today          string `json:"today"`
	PreviousReset  string `json:"previousReset,omitempty"`
}

// DailyCycle resets task completion state exactly once per calendar day.
type DailyCycle struct {
	run    *runner
	dates  DateSource
	policy ResetPolicy
	logger *slog.Logger
}

// CheckAndReset clears task state when the stored last reset date is not today.
// Calling it again on the same day is a no-op.
func (c *DailyCycle) CheckAndReset(ctx context.Context) (ResetResult, error) {
	today, err := c.dates.Today()
	if err != nil {
		return ResetResult{}, failure(c.logger, opCheckAndReset, ErrClockUnavailable, err)
	}

	unlock, err := c.run.lock(ctx, cycleLockKey)
	if err != nil {
		return ResetResult{}, failure(c.logger, opCheckAndReset, ErrPersistenceUnavailable, err)
	}
	defer unlock()

	result := ResetResult{Today: today}
	err = c.run.within(ctx, func(tasks TaskStore, meta CycleMetaStore) error {
		last, err := meta.GetLastResetDate(ctx)
		if err != nil {
			return fmt.Errorf("read last reset date: %w", err)
		}
		result.PreviousReset = last
		if last == today {
			return nil
		}

		// Tasks first: a failed date write leaves the old date, so the next call retries.
		if err := tasks.ResetAllTasks(ctx, c.policy.Fields()); err != nil {
			return fmt.Errorf("reset tasks: %w", err)
		}
		if err := meta.SetLastResetDate(ctx, today); err != nil {
			return fmt.Errorf("write last reset date: %w", err)
		}
		result.ResetPerformed = true
		return nil
	})
	if err != nil {
		return ResetResult{}, failure(c.logger, opCheckAndReset, ErrPersistenceUnavailable, err)
	}

	if result.ResetPerformed {
		metrics.ResetsTotal.WithLabelValues(string(c.policy)).Inc()
		c.logger.Info("daily reset performed",
			slog.String("day", today),
			slog.String("previous", result.PreviousReset),
			slog.String("policy", string(c.policy)))
	}
	return result, nil
}

// failure records and logs a failed operation and builds its *Error.
func failure(logger *slog.Logger, op string, kind, err error) error {
	metrics.EngineErrors.WithLabelValues(op, kindLabel(kind)).Inc()
	level := slog.LevelError
	if kind == ErrNotFound {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "engine operation failed",
		slog.String("op", op),
		slog.String("kind", kindLabel(kind)),
		slog.Any("error", err))
	return &Error{Op: op, Kind: kind, Err: err}
}
