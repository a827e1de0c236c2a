package engine

import (
	"context"
	"fmt"

	"kidtasks/internal/models"
)

// TaskStore is the narrow view of task storage the engine needs.
type TaskStore interface {
	// ListTasks returns the tasks of one kid, or of all kids when kidID is empty.
	ListTasks(ctx context.Context, kidID string) ([]models.Task, error)

	// SetTaskFields writes the set fields of one task and returns the updated
	// task, or nil when no such task exists.
	SetTaskFields(ctx context.Context, taskID string, fields models.TaskFields) (*models.Task, error)

	// ResetAllTasks writes the set fields on every task of every kid.
	ResetAllTasks(ctx context.Context, fields models.TaskFields) error
}

// KidDirectory is optionally implemented by a TaskStore that can tell a kid
// without tasks apart from a kid that does not exist.
type KidDirectory interface {
	KidExists(ctx context.Context, kidID string) (bool, error)
}

// CycleMetaStore holds the global last reset date and the per-kid streak rows.
type CycleMetaStore interface {
	// GetLastResetDate returns "" when no reset has ever been recorded.
	GetLastResetDate(ctx context.Context) (string, error)
	SetLastResetDate(ctx context.Context, day string) error

	// GetStreak returns nil when the kid has no streak row yet.
	GetStreak(ctx context.Context, kidID string) (*models.StreakState, error)
	PutStreak(ctx context.Context, state models.StreakState) error
}

// TxRunner runs fn against stores that commit or roll back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(TaskStore, CycleMetaStore) error) error
}

// Locker serializes mutations sharing a key. unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// StreakObserver is told about every persisted streak change.
type StreakObserver interface {
	StreakUpdated(ctx context.Context, state models.StreakState, outcome Outcome)
}

// DateSource is the calendar authority used for "today" and day gaps.
type DateSource interface {
	Today() (string, error)
	DayDiff(prev, curr string) (int, bool)
}

// ResetPolicy decides which flags the daily reset clears.
type ResetPolicy string

const (
	// PolicyClearDone only clears isDone; tasks stay active for the new day.
	PolicyClearDone ResetPolicy = "clear-done"

	// PolicyDeactivate clears isDone and deactivates every task until re-enabled.
	PolicyDeactivate ResetPolicy = "deactivate"
)

// ParseResetPolicy parses a configured policy name
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch ResetPolicy(s) {
	case "", PolicyClearDone:
		return PolicyClearDone, nil
	case PolicyDeactivate:
		return PolicyDeactivate, nil
	default:
		return "", fmt.Errorf("unknown reset policy %q", s)
	}
}

// Fields returns the task fields written by a reset under this policy
func (p ResetPolicy) Fields() models.TaskFields {
	if p == PolicyDeactivate {
		return models.TaskFields{IsDone: models.Bool(false), IsActive: models.Bool(false)}
	}
	return models.TaskFields{IsDone: models.Bool(false)}
}

// runner applies the optional transaction and lock collaborators.
type runner struct {
	tasks TaskStore
	meta  CycleMetaStore
	tx    TxRunner
	locks Locker
}

func (r *runner) within(ctx context.Context, fn func(TaskStore, CycleMetaStore) error) error {
	if r.tx != nil {
		return r.tx.WithinTx(ctx, fn)
	}
	return fn(r.tasks, r.meta)
}

func (r *runner) lock(ctx context.Context, key string) (func(), error) {
	if r.locks == nil {
		return func() {}, nil
	}
	return r.locks.Lock(ctx, key)
}
