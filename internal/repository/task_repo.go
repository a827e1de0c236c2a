package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kidtasks/internal/database"
	"kidtasks/internal/models"
)

// TaskRepository handles database operations for tasks.
// It implements engine.TaskStore and engine.KidDirectory.
type TaskRepository struct {
	db database.Querier
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db database.Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = "id, kid_id, title, icon_type, icon_value, sort_order, is_done, is_active"

// KidExists reports whether a kid row exists
func (r *TaskRepository) KidExists(ctx context.Context, kidID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM kids WHERE id = ?", kidID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up kid: %w", err)
	}
	return true, nil
}

// CreateTask inserts a task, assigning an ID when it has none
func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	query := "INSERT INTO tasks (" + taskColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.KidID, task.Title, task.IconType, task.IconValue, task.Order, task.IsDone, task.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by ID
func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	task, err := scanTask(r.db.QueryRowContext(ctx, query, taskID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks retrieves the tasks of kidID in display order, or every task when kidID is empty
func (r *TaskRepository) ListTasks(ctx context.Context, kidID string) ([]models.Task, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if kidID == "" {
		query := "SELECT " + taskColumns + " FROM tasks ORDER BY kid_id ASC, sort_order ASC, id ASC"
		rows, err = r.db.QueryContext(ctx, query)
	} else {
		query := "SELECT " + taskColumns + " FROM tasks WHERE kid_id = ? ORDER BY sort_order ASC, id ASC"
		rows, err = r.db.QueryContext(ctx, query, kidID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// NextOrder returns the order value that places a new task last for kidID
func (r *TaskRepository) NextOrder(ctx context.Context, kidID string) (int, error) {
	var last sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT MAX(sort_order) FROM tasks WHERE kid_id = ?", kidID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get task order: %w", err)
	}
	return int(last.Int64) + 1, nil
}

// UpdateTask applies patch to a task. Returns nil when the task does not exist.
func (r *TaskRepository) UpdateTask(ctx context.Context, taskID string, patch models.TaskPatch) (*models.Task, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.IconType != nil {
		add("icon_type", *patch.IconType)
	}
	if patch.IconValue != nil {
		add("icon_value", *patch.IconValue)
	}
	if patch.Order != nil {
		add("sort_order", *patch.Order)
	}
	if patch.IsDone != nil {
		add("is_done", *patch.IsDone)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if len(sets) == 0 {
		return r.GetTaskByID(ctx, taskID)
	}

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, taskID)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return r.GetTaskByID(ctx, taskID)
}

// SetTaskFields writes the completion flags of one task. Returns nil when the task does not exist.
func (r *TaskRepository) SetTaskFields(ctx context.Context, taskID string, fields models.TaskFields) (*models.Task, error) {
	return r.UpdateTask(ctx, taskID, models.TaskPatch{IsDone: fields.IsDone, IsActive: fields.IsActive})
}

// ResetAllTasks writes the given completion flags on every task
func (r *TaskRepository) ResetAllTasks(ctx context.Context, fields models.TaskFields) error {
	var (
		sets []string
		args []any
	)
	if fields.IsDone != nil {
		sets = append(sets, "is_done = ?")
		args = append(args, *fields.IsDone)
	}
	if fields.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *fields.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE tasks SET "+strings.Join(sets, ", "), args...); err != nil {
		return fmt.Errorf("failed to reset tasks: %w", err)
	}
	return nil
}

// ReorderTasks sets the order of each listed task of kidID to its 1-based position.
// Returns the number of tasks updated; IDs of other kids are skipped.
func (r *TaskRepository) ReorderTasks(ctx context.Context, kidID string, taskIDs []string) (int, error) {
	updated := 0
	for i, id := range taskIDs {
		result, err := r.db.ExecContext(ctx, "UPDATE tasks SET sort_order = ? WHERE id = ? AND kid_id = ?", i+1, id, kidID)
		if err != nil {
			return updated, fmt.Errorf("failed to reorder tasks: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return updated, fmt.Errorf("failed to reorder tasks: %w", err)
		}
		updated += int(n)
	}
	return updated, nil
}

// DeleteTask deletes a task and reports whether it existed
func (r *TaskRepository) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return n > 0, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	err := row.Scan(&task.ID, &task.KidID, &task.Title, &task.IconType, &task.IconValue,
		&task.Order, &task.IsDone, &task.IsActive)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
