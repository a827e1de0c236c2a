package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kidtasks/internal/engine"
	"kidtasks/internal/models"
	"kidtasks/internal/repository"
)

// ErrConflict means a client chosen id is already taken
var ErrConflict = errors.New("already exists")

// Ack is the reply of commands that return no entity
type Ack struct {
	Success bool `json:"success"`
}

// ResetAck is the reply of ResetTasksIfNeeded
type ResetAck struct {
	Success        bool   `json:"success"`
	ResetPerformed bool   `json:"resetPerformed"`
	Today          string `json:"today"`
}

// BoardService executes board commands against the store and the engine
type BoardService struct {
	store  *repository.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewBoardService creates a new board service
func NewBoardService(store *repository.Store, eng *engine.Engine, logger *slog.Logger) *BoardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BoardService{store: store, engine: eng, logger: logger.With(slog.String("component", "board"))}
}

// Snapshot returns every kid, task and streak with the last reset day
func (s *BoardService) Snapshot(ctx context.Context) (*models.BoardSnapshot, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, &engine.Error{Op: "snapshot", Kind: engine.ErrPersistenceUnavailable, Err: err}
	}
	return snap, nil
}

// Execute runs cmd and returns the value to send back to the client
func (s *BoardService) Execute(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case AddKid:
		return s.addKid(ctx, c)
	case UpdateKid:
		return s.updateKid(ctx, c)
	case DeleteKid:
		return s.deleteKid(ctx, c)
	case AddTask:
		return s.addTask(ctx, c)
	case UpdateTask:
		return s.updateTask(ctx, c)
	case DeleteTask:
		return s.deleteTask(ctx, c)
	case ReorderTasks:
		return s.reorderTasks(ctx, c)
	case ResetTasksIfNeeded:
		return s.resetTasksIfNeeded(ctx)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, cmd)
	}
}

func (s *BoardService) addKid(ctx context.Context, c AddKid) (*models.Kid, error) {
	kid := &models.Kid{ID: c.ID, Name: c.Name, Color: c.Color, PhotoDataURL: c.PhotoDataURL}
	var taken bool
	err := s.store.Within(ctx, func(r repository.Repos) error {
		if kid.ID != "" {
			existing, err := r.Kids.GetKidByID(ctx, kid.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				taken = true
				return nil
			}
		}
		return r.Kids.CreateKid(ctx, kid)
	})
	if err != nil {
		return nil, persistence(ActionAddKid, err)
	}
	if taken {
		return nil, conflict("kid", c.ID)
	}
	s.logger.Info("kid added", slog.String("kid_id", kid.ID))
	return kid, nil
}

func (s *BoardService) updateKid(ctx context.Context, c UpdateKid) (*models.Kid, error) {
	kid, err := s.store.Kids.UpdateKid(ctx, c.ID, c.Updates)
	if err != nil {
		return nil, persistence(ActionUpdateKid, err)
	}
	if kid == nil {
		return nil, notFound(ActionUpdateKid, "kid", c.ID)
	}
	return kid, nil
}

func (s *BoardService) deleteKid(ctx context.Context, c DeleteKid) (Ack, error) {
	var removed bool
	err := s.store.Within(ctx, func(r repository.Repos) error {
		var err error
		removed, err = r.Kids.DeleteKid(ctx, c.ID)
		return err
	})
	if err != nil {
		return Ack{}, persistence(ActionDeleteKid, err)
	}
	if removed {
		s.logger.Info("kid deleted", slog.String("kid_id", c.ID))
	}
	return Ack{Success: true}, nil
}

func (s *BoardService) addTask(ctx context.Context, c AddTask) (*models.Task, error) {
	task := &models.Task{
		ID:        c.ID,
		KidID:     c.KidID,
		Title:     c.Title,
		IconType:  c.IconType,
		IconValue: c.IconValue,
		IsDone:    c.IsDone,
		IsActive:  c.IsActive == nil || *c.IsActive,
	}

	var missingKid, taken bool
	err := s.store.Within(ctx, func(r repository.Repos) error {
		kid, err := r.Kids.GetKidByID(ctx, c.KidID)
		if err != nil {
			return err
		}
		if kid == nil {
			missingKid = true
			return nil
		}
		if task.ID != "" {
			existing, err := r.Tasks.GetTaskByID(ctx, task.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				taken = true
				return nil
			}
		}
		if c.Order != nil {
			task.Order = *c.Order
		} else if task.Order, err = r.Tasks.NextOrder(ctx, c.KidID); err != nil {
			return err
		}
		return r.Tasks.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, persistence(ActionAddTask, err)
	}
	if missingKid {
		return nil, notFound(ActionAddTask, "kid", c.KidID)
	}
	if taken {
		return nil, conflict("task", c.ID)
	}
	return task, nil
}

// updateTask writes the non-completion fields first, then hands isDone to the
// engine so a false to true transition is evaluated for the streak.
func (s *BoardService) updateTask(ctx context.Context, c UpdateTask) (*models.Task, error) {
	details := c.Updates
	details.IsDone = nil

	var task *models.Task
	if details.HasDetails() || c.Updates.IsDone == nil {
		var err error
		task, err = s.store.Tasks.UpdateTask(ctx, c.ID, details)
		if err != nil {
			return nil, persistence(ActionUpdateTask, err)
		}
		if task == nil {
			return nil, notFound(ActionUpdateTask, "task", c.ID)
		}
	}

	if c.Updates.IsDone != nil {
		result, err := s.engine.RecordTaskCompletion(ctx, "", c.ID, *c.Updates.IsDone)
		if err != nil {
			return nil, err
		}
		task = &result.Task
	}
	return task, nil
}

func (s *BoardService) deleteTask(ctx context.Context, c DeleteTask) (Ack, error) {
	if _, err := s.store.Tasks.DeleteTask(ctx, c.ID); err != nil {
		return Ack{}, persistence(ActionDeleteTask, err)
	}
	return Ack{Success: true}, nil
}

func (s *BoardService) reorderTasks(ctx context.Context, c ReorderTasks) (Ack, error) {
	err := s.store.Within(ctx, func(r repository.Repos) error {
		_, err := r.Tasks.ReorderTasks(ctx, c.KidID, c.TaskIDs)
		return err
	})
	if err != nil {
		return Ack{}, persistence(ActionReorderTasks, err)
	}
	return Ack{Success: true}, nil
}

func (s *BoardService) resetTasksIfNeeded(ctx context.Context) (ResetAck, error) {
	res, err := s.engine.CheckAndReset(ctx)
	if err != nil {
		return ResetAck{}, err
	}
	return ResetAck{Success: true, ResetPerformed: res.ResetPerformed, Today: res.Today}, nil
}

func persistence(op string, err error) error {
	return &engine.Error{Op: op, Kind: engine.ErrPersistenceUnavailable, Err: err}
}

func conflict(what, id string) error {
	return fmt.Errorf("%w: %s %q", ErrConflict, what, id)
}

func notFound(op, what, id string) error {
	return &engine.Error{Op: op, Kind: engine.ErrNotFound, Err: fmt.Errorf("%s %q", what, id)}
}
