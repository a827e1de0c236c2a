package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"kidtasks/internal/models"
	"kidtasks/internal/validation"
)

// Command decoding errors
var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Action tags on the wire
const (
	ActionAddKid             = "addKid"
	ActionUpdateKid          = "updateKid"
	ActionDeleteKid          = "deleteKid"
	ActionAddTask            = "addTask"
	ActionUpdateTask         = "updateTask"
	ActionDeleteTask         = "deleteTask"
	ActionReorderTasks       = "reorderTasks"
	ActionResetTasksIfNeeded = "resetTasksIfNeeded"
)

// Command is one board mutation. The set of commands is closed.
type Command interface {
	Action() string
	Validate() error
	command()
}

// AddKid creates a kid profile
type AddKid struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	PhotoDataURL string `json:"photoDataUrl,omitempty"`
}

// UpdateKid changes a kid's profile fields
type UpdateKid struct {
	ID      string          `json:"id"`
	Updates models.KidPatch `json:"updates"`
}

// DeleteKid removes a kid with their tasks and streak
type DeleteKid struct {
	ID string `json:"id"`
}

// AddTask creates a task for a kid. Order defaults to last, IsActive to true.
type AddTask struct {
	ID        string `json:"id,omitempty"`
	KidID     string `json:"kidId"`
	Title     string `json:"title"`
	IconType  string `json:"iconType"`
	IconValue string `json:"iconValue"`
	Order     *int   `json:"order,omitempty"`
	IsDone    bool   `json:"isDone,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

// UpdateTask changes task fields; isDone is routed through the streak engine
type UpdateTask struct {
	ID      string           `json:"id"`
	Updates models.TaskPatch `json:"updates"`
}

// DeleteTask removes a task
type DeleteTask struct {
	ID string `json:"id"`
}

// ReorderTasks sets a kid's task order to the position in TaskIDs
type ReorderTasks struct {
	KidID   string   `json:"kidId"`
	TaskIDs []string `json:"taskIds"`
}

// ResetTasksIfNeeded runs the daily reset when the day changed
type ResetTasksIfNeeded struct{}

func (AddKid) Action() string             { return ActionAddKid }
func (UpdateKid) Action() string          { return ActionUpdateKid }
func (DeleteKid) Action() string          { return ActionDeleteKid }
func (AddTask) Action() string            { return ActionAddTask }
func (UpdateTask) Action() string         { return ActionUpdateTask }
func (DeleteTask) Action() string         { return ActionDeleteTask }
func (ReorderTasks) Action() string       { return ActionReorderTasks }
func (ResetTasksIfNeeded) Action() string { return ActionResetTasksIfNeeded }

func (AddKid) command()             {}
func (UpdateKid) command()          {}
func (DeleteKid) command()          {}
func (AddTask) command()            {}
func (UpdateTask) command()         {}
func (DeleteTask) command()         {}
func (ReorderTasks) command()       {}
func (ResetTasksIfNeeded) command() {}

func (c AddKid) Validate() error {
	return errors.Join(
		validation.ValidateOptionalID("id", c.ID),
		validation.ValidateName(c.Name),
		validation.ValidateColor(c.Color),
		validation.ValidatePhoto(c.PhotoDataURL),
	)
}

func (c UpdateKid) Validate() error {
	errs := []error{validation.ValidateID("id", c.ID)}
	if c.Updates.Name != nil {
		errs = append(errs, validation.ValidateName(*c.Updates.Name))
	}
	if c.Updates.Color != nil {
		errs = append(errs, validation.ValidateColor(*c.Updates.Color))
	}
	if c.Updates.PhotoDataURL != nil {
		errs = append(errs, validation.ValidatePhoto(*c.Updates.PhotoDataURL))
	}
	return errors.Join(errs...)
}

func (c DeleteKid) Validate() error {
	return validation.ValidateID("id", c.ID)
}

func (c AddTask) Validate() error {
	errs := []error{
		validation.ValidateOptionalID("id", c.ID),
		validation.ValidateID("kidId", c.KidID),
		validation.ValidateTitle(c.Title),
		validation.ValidateIcon(c.IconType, c.IconValue),
	}
	if c.Order != nil {
		errs = append(errs, validation.ValidateOrder(*c.Order))
	}
	return errors.Join(errs...)
}

func (c UpdateTask) Validate() error {
	u := c.Updates
	errs := []error{validation.ValidateID("id", c.ID)}
	if u.Title != nil {
		errs = append(errs, validation.ValidateTitle(*u.Title))
	}
	if u.Order != nil {
		errs = append(errs, validation.ValidateOrder(*u.Order))
	}
	switch {
	case u.IconType != nil && u.IconValue != nil:
		errs = append(errs, validation.ValidateIcon(*u.IconType, *u.IconValue))
	case u.IconType != nil || u.IconValue != nil:
		errs = append(errs, &validation.Error{Field: "iconType", Message: "iconType and iconValue must be updated together"})
	}
	return errors.Join(errs...)
}

func (c DeleteTask) Validate() error {
	return validation.ValidateID("id", c.ID)
}

func (c ReorderTasks) Validate() error {
	errs := []error{validation.ValidateID("kidId", c.KidID)}
	if len(c.TaskIDs) == 0 {
		errs = append(errs, &validation.Error{Field: "taskIds", Message: "taskIds is required"})
	}
	seen := make(map[string]bool, len(c.TaskIDs))
	for _, id := range c.TaskIDs {
		if seen[id] {
			errs = append(errs, &validation.Error{Field: "taskIds", Message: fmt.Sprintf("duplicate task id %q", id)})
			break
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}

func (ResetTasksIfNeeded) Validate() error { return nil }

type envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeCommand reads one {"action", "payload"} request body and validates it
func DecodeCommand(r io.Reader) (Command, error) {
	var env envelope
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Action {
	case ActionAddKid:
		cmd, err := decodePayload[AddKid](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionUpdateKid:
		cmd, err := decodePayload[UpdateKid](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionDeleteKid:
		cmd, err := decodePayload[DeleteKid](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionAddTask:
		cmd, err := decodePayload[AddTask](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionUpdateTask:
		cmd, err := decodePayload[UpdateTask](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionDeleteTask:
		cmd, err := decodePayload[DeleteTask](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionReorderTasks:
		cmd, err := decodePayload[ReorderTasks](env.Payload)
		if err != nil {
			return nil, err
		}
		return validated(cmd)
	case ActionResetTasksIfNeeded:
		return ResetTasksIfNeeded{}, nil
	case "":
		return nil, fmt.Errorf("%w: action is required", ErrInvalidPayload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

func validated(cmd Command) (Command, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return cmd, nil
}
