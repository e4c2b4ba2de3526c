package task

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no task exists for a given id.
var ErrNotFound = errors.New("task not found")

// ValidationError marks bad caller input. The message is safe to show
// to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a caller-input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is the unit of tracked work. CreatedAt, UpdatedAt and CompletedAt
// are owned by the store and never taken from callers. CompletedAt is
// stamped the first time a task reaches completed and is never cleared,
// even if the status later moves away from completed.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	Notes       *string    `json:"notes"`
	Overnight   bool       `json:"overnight"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Draft carries caller-supplied fields for Create. Zero values fall back
// to the documented defaults.
type Draft struct {
	Title       string
	Description *string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  string
	CreatedBy   string
	Notes       *string
	Overnight   bool
}

// OptionalString is a tri-state patch field: absent, explicitly cleared
// (Set with nil Value), or set to a value.
type OptionalString struct {
	Set   bool
	Value *string
}

// OptionalTime is the tri-state counterpart for timestamp fields.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// Patch is a merge-patch over the mutable task fields. Nil pointer /
// unset optional means "leave untouched".
type Patch struct {
	Title       *string
	Description OptionalString
	Status      *Status
	Priority    *Priority
	DueDate     OptionalTime
	AssignedTo  *string
	Notes       OptionalString
	Overnight   *bool
}

// Filter narrows List results. All fields are optional and compose with AND.
type Filter struct {
	Status    *Status
	Priority  *Priority
	Since     *time.Time
	Overnight *bool
}
