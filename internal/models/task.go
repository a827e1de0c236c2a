package models

// Icon types a task can display
const (
	IconTypeEmoji = "emoji"
	IconTypeImage = "image"
)

// Task represents one recurring daily task owned by a kid
type Task struct {
	ID        string `json:"id"`
	KidID     string `json:"kidId"`
	Title     string `json:"title"`
	IconType  string `json:"iconType"`
	IconValue string `json:"iconValue"`
	Order     int    `json:"order"`
	IsDone    bool   `json:"isDone"`
	IsActive  bool   `json:"isActive"`
}

// TaskFields selects the completion flags to write. Nil fields are left unchanged.
type TaskFields struct {
	IsDone   *bool
	IsActive *bool
}

// IsEmpty reports whether no field is set
func (f TaskFields) IsEmpty() bool {
	return f.IsDone == nil && f.IsActive == nil
}

// Apply writes the set fields onto t
func (f TaskFields) Apply(t *Task) {
	if f.IsDone != nil {
		t.IsDone = *f.IsDone
	}
	if f.IsActive != nil {
		t.IsActive = *f.IsActive
	}
}

// TaskPatch holds optional task field updates from the admin and board views
type TaskPatch struct {
	Title     *string `json:"title,omitempty"`
	IconType  *string `json:"iconType,omitempty"`
	IconValue *string `json:"iconValue,omitempty"`
	Order     *int    `json:"order,omitempty"`
	IsDone    *bool   `json:"isDone,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// HasDetails reports whether the patch touches anything besides isDone
func (p TaskPatch) HasDetails() bool {
	return p.Title != nil || p.IconType != nil || p.IconValue != nil || p.Order != nil || p.IsActive != nil
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}
