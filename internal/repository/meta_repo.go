package repository

import (
	"context"
	"database/sql"
	"fmt"

	"kidtasks/internal/database"
	"kidtasks/internal/models"
)

// MetaKeyLastResetDate stores the calendar day of the last daily reset
const MetaKeyLastResetDate = "lastResetDate"

// MetaRepository stores cycle metadata and per-kid streaks.
// It implements engine.CycleMetaStore.
type MetaRepository struct {
	db database.Querier
}

// NewMetaRepository creates a new meta repository
func NewMetaRepository(db database.Querier) *MetaRepository {
	return &MetaRepository{db: db}
}

// GetMeta retrieves a metadata value by key, "" when absent
func (r *MetaRepository) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT meta_value FROM meta WHERE meta_key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta updates or inserts a metadata value
func (r *MetaRepository) SetMeta(ctx context.Context, key, value string) error {
	query := r.db.GetDialect().Upsert("meta", []string{"meta_key"}, []string{"meta_key", "meta_value"})
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// GetLastResetDate returns the day of the last reset, "" when none happened yet
func (r *MetaRepository) GetLastResetDate(ctx context.Context) (string, error) {
	return r.GetMeta(ctx, MetaKeyLastResetDate)
}

// SetLastResetDate records the day of the last reset
func (r *MetaRepository) SetLastResetDate(ctx context.Context, day string) error {
	return r.SetMeta(ctx, MetaKeyLastResetDate, day)
}

const streakColumns = "kid_id, streak_count, last_perfect_date, longest_streak"

// GetStreak retrieves the streak row of kidID, nil when the kid has none
func (r *MetaRepository) GetStreak(ctx context.Context, kidID string) (*models.StreakState, error) {
	query := "SELECT " + streakColumns + " FROM streaks WHERE kid_id = ?"
	state, err := scanStreak(r.db.QueryRowContext(ctx, query, kidID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return state, nil
}

// PutStreak writes the streak row of state.KidID
func (r *MetaRepository) PutStreak(ctx context.Context, state models.StreakState) error {
	cols := []string{"kid_id", "streak_count", "last_perfect_date", "longest_streak"}
	query := r.db.GetDialect().Upsert("streaks", []string{"kid_id"}, cols)
	_, err := r.db.ExecContext(ctx, query,
		state.KidID, state.StreakCount, nullString(state.LastPerfectDate), state.LongestStreak)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// ListStreaks retrieves every streak row ordered by kid
func (r *MetaRepository) ListStreaks(ctx context.Context) ([]models.StreakState, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+streakColumns+" FROM streaks ORDER BY kid_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query streaks: %w", err)
	}
	defer rows.Close()

	streaks := []models.StreakState{}
	for rows.Next() {
		state, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		streaks = append(streaks, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streaks: %w", err)
	}
	return streaks, nil
}

func scanStreak(row rowScanner) (*models.StreakState, error) {
	var (
		state models.StreakState
		last  sql.NullString
	)
	if err := row.Scan(&state.KidID, &state.StreakCount, &last, &state.LongestStreak); err != nil {
		return nil, err
	}
	state.LastPerfectDate = last.String
	return &state, nil
}
