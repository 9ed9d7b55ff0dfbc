package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the completion state of a task.
type Status string

// Task status constants.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Priority is the urgency level of a task.
type Priority string

// Task priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from highest to lowest.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Value returns the numeric weight used for priority sorting
// (high=3, medium=2, low=1). Unknown values weigh as medium.
func (p Priority) Value() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Category groups tasks by area of life.
type Category string

// Task category constants.
const (
	CategoryWork     Category = "work"
	CategoryStudy    Category = "study"
	CategoryHobby    Category = "hobby"
	CategoryPersonal Category = "personal"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryWork, CategoryStudy, CategoryHobby, CategoryPersonal}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryStudy, CategoryHobby, CategoryPersonal:
		return true
	}
	return false
}

// displayDateLayout is used by the formatted date helpers.
const displayDateLayout = "Jan 2, 2006 15:04"

// Task is a unit of work owned by exactly one user.
type Task struct {
	// ID is generated at creation and never changes.
	ID string `json:"id"`

	// Content is the trimmed, non-empty task text.
	Content string `json:"content"`

	// UserID references the owning user. It is not enforced; readers
	// must check that the user still exists.
	UserID string `json:"userId"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Category Category `json:"category"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// CompletedAt is non-nil iff Status is StatusDone.
	CompletedAt *time.Time `json:"completedAt"`

	// Position is the manual ordering key, reassigned after every move.
	Position int `json:"position"`
}

// NewTask creates a pending task stamped with the current time.
// Empty priority or category fall back to medium and personal.
func NewTask(content, userID string, priority Priority, category Category) (*Task, error) {
	return NewTaskAt(content, userID, priority, category, Now())
}

// NewTaskAt creates a pending task whose timestamps are set to at.
func NewTaskAt(
	content, userID string,
	priority Priority,
	category Category,
	at time.Time,
) (*Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("task content must not be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("task user id is required: %w", ErrValidation)
	}
	if !priority.Valid() {
		priority = PriorityMedium
	}
	if !category.Valid() {
		category = CategoryPersonal
	}

	at = Timestamp(at)
	return &Task{
		ID:        NewTaskID(),
		Content:   content,
		UserID:    userID,
		Status:    StatusPending,
		Priority:  priority,
		Category:  category,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// NewTaskID returns a fresh opaque task identifier.
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// MarkCompleted sets the task to done and stamps CompletedAt.
func (t *Task) MarkCompleted() {
	now := Now()
	t.Status = StatusDone
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkPending sets the task back to pending and clears CompletedAt.
func (t *Task) MarkPending() {
	t.Status = StatusPending
	t.CompletedAt = nil
	t.UpdatedAt = Now()
}

// ToggleStatus flips the task between pending and done.
func (t *Task) ToggleStatus() {
	if t.Status == StatusDone {
		t.MarkPending()
		return
	}
	t.MarkCompleted()
}

// UpdateContent replaces the content with the trimmed value.
// Blank input is ignored. It reports whether the task changed.
func (t *Task) UpdateContent(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	t.Content = content
	t.UpdatedAt = Now()
	return true
}

// UpdatePriority sets a new priority. Unknown values are ignored.
func (t *Task) UpdatePriority(p Priority) bool {
	if !p.Valid() {
		return false
	}
	t.Priority = p
	t.UpdatedAt = Now()
	return true
}

// UpdateCategory sets a new category. Unknown values are ignored.
func (t *Task) UpdateCategory(c Category) bool {
	if !c.Valid() {
		return false
	}
	t.Category = c
	t.UpdatedAt = Now()
	return true
}

// IsCompleted reports whether the task is done.
func (t Task) IsCompleted() bool { return t.Status == StatusDone }

// PriorityValue returns the numeric sort weight of the task's priority.
func (t Task) PriorityValue() int { return t.Priority.Value() }

// PriorityLabel returns the human-readable priority name.
func (t Task) PriorityLabel() string {
	switch t.Priority {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	default:
		return "Medium"
	}
}

// CategoryLabel returns the human-readable category name.
func (t Task) CategoryLabel() string {
	switch t.Category {
	case CategoryWork:
		return "Work"
	case CategoryStudy:
		return "Study"
	case CategoryHobby:
		return "Hobby"
	default:
		return "Personal"
	}
}

// StatusLabel returns the human-readable status name.
func (t Task) StatusLabel() string {
	if t.Status == StatusDone {
		return "Done"
	}
	return "Pending"
}

// FormattedCreatedDate renders CreatedAt in local time.
func (t Task) FormattedCreatedDate() string {
	return t.CreatedAt.Local().Format(displayDateLayout)
}

// FormattedCompletedDate renders CompletedAt in local time, or ""
// when the task is not done.
func (t Task) FormattedCompletedDate() string {
	if t.CompletedAt == nil {
		return ""
	}
	return t.CompletedAt.Local().Format(displayDateLayout)
}

// MatchesFilters reports whether the task satisfies every non-empty
// predicate in f. It has no side effects.
func (t Task) MatchesFilters(f FilterSet) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.SearchText != "" &&
		!strings.Contains(strings.ToLower(t.Content), strings.ToLower(f.SearchText)) {
		return false
	}
	return true
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		c.CompletedAt = &done
	}
	return c
}

// UnmarshalJSON decodes a persisted task, restoring constructor defaults
// for absent or unknown enum values and keeping CompletedAt consistent
// with Status.
func (t *Task) UnmarshalJSON(data []byte) error {
	type rawTask Task
	var raw rawTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw)

	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Category.Valid() {
		t.Category = CategoryPersonal
	}
	if !t.Status.Valid() {
		t.Status = StatusPending
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	switch {
	case t.Status == StatusDone && t.CompletedAt == nil:
		done := t.UpdatedAt
		t.CompletedAt = &done
	case t.Status == StatusPending:
		t.CompletedAt = nil
	}
	return nil
}

// TaskUpdate carries the optional fields of a partial task update.
// Nil fields are left unchanged.
type TaskUpdate struct {
	Content  *string
	Priority *Priority
	Category *Category
	Status   *Status
}

// Apply routes each provided field through the task's update methods
// and reports whether anything changed.
func (u TaskUpdate) Apply(t *Task) bool {
	changed := false
	if u.Content != nil && t.UpdateContent(*u.Content) {
		changed = true
	}
	if u.Priority != nil && t.UpdatePriority(*u.Priority) {
		changed = true
	}
	if u.Category != nil && t.UpdateCategory(*u.Category) {
		changed = true
	}
	if u.Status != nil {
		switch *u.Status {
		case StatusDone:
			t.MarkCompleted()
			changed = true
		case StatusPending:
			t.MarkPending()
			changed = true
		}
	}
	return changed
}
