package repository

import (
	"context"
	"fmt"

	"kidtasks/internal/database"
	"kidtasks/internal/engine"
	"kidtasks/internal/models"
)

// Repos groups the repositories bound to one connection or transaction
type Repos struct {
	Kids  *KidRepository
	Tasks *TaskRepository
	Meta  *MetaRepository
}

// NewRepos binds every repository to q
func NewRepos(q database.Querier) Repos {
	return Repos{
		Kids:  NewKidRepository(q),
		Tasks: NewTaskRepository(q),
		Meta:  NewMetaRepository(q),
	}
}

// Store is the SQL-backed storage of the board
type Store struct {
	Repos
	db *database.DB
}

// NewStore creates a store over db
func NewStore(db *database.DB) *Store {
	return &Store{Repos: NewRepos(db), db: db}
}

// Within runs fn with repositories bound to a single transaction
func (s *Store) Within(ctx context.Context, fn func(Repos) error) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(NewRepos(tx))
	})
}

// WithinTx implements engine.TxRunner
func (s *Store) WithinTx(ctx context.Context, fn func(engine.TaskStore, engine.CycleMetaStore) error) error {
	return s.Within(ctx, func(r Repos) error {
		return fn(r.Tasks, r.Meta)
	})
}

// Snapshot reads the whole board in one transaction
func (s *Store) Snapshot(ctx context.Context) (*models.BoardSnapshot, error) {
	snap := &models.BoardSnapshot{}
	err := s.Within(ctx, func(r Repos) error {
		var err error
		if snap.Kids, err = r.Kids.ListKids(ctx); err != nil {
			return err
		}
		if snap.Tasks, err = r.Tasks.ListTasks(ctx, ""); err != nil {
			return err
		}
		last, err := r.Meta.GetLastResetDate(ctx)
		if err != nil {
			return err
		}
		if last != "" {
			snap.LastResetDate = &last
		}
		snap.Streaks, err = r.Meta.ListStreaks(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

// Clear removes every kid, task, streak and metadata row
func (r Repos) Clear(ctx context.Context) error {
	for _, table := range []string{"streaks", "tasks", "kids", "meta"} {
		if _, err := r.Kids.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
