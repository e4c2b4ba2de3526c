package task

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lumen/app/core/db"
)

const selectColumns = `id, title, description, status, priority, due_date, assigned_to, created_by, notes, overnight, created_at, updated_at, completed_at`

// Store is the persistence gateway for tasks. Each call is an
// independent statement; concurrent updates to the same task are
// last-writer-wins.
type Store struct {
	db              *db.DB
	defaultAssignee string
	defaultCreator  string
}

func NewStore(database *db.DB, defaultAssignee string, defaultCreator string) *Store {
	return &Store{
		db:              database,
		defaultAssignee: defaultAssignee,
		defaultCreator:  defaultCreator,
	}
}

func (s *Store) Create(ctx context.Context, draft Draft) (Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return Task{}, validationf("Title is required")
	}
	if draft.Status == "" {
		draft.Status = StatusPending
	}
	if !draft.Status.Valid() {
		return Task{}, validationf(fmt.Sprintf("invalid status: %q", draft.Status))
	}
	if draft.Priority == "" {
		draft.Priority = PriorityMedium
	}
	if !draft.Priority.Valid() {
		return Task{}, validationf(fmt.Sprintf("invalid priority: %q", draft.Priority))
	}
	if strings.TrimSpace(draft.AssignedTo) == "" {
		draft.AssignedTo = s.defaultAssignee
	}
	if strings.TrimSpace(draft.CreatedBy) == "" {
		draft.CreatedBy = s.defaultCreator
	}

	now := time.Now().UTC()
	t := Task{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		AssignedTo:  draft.AssignedTo,
		CreatedBy:   draft.CreatedBy,
		Notes:       draft.Notes,
		Overnight:   draft.Overnight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO tasks (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Conn().ExecContext(ctx, query,
		t.ID,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		string(t.Priority),
		nullTime(t.DueDate),
		t.AssignedTo,
		t.CreatedBy,
		nullString(t.Notes),
		boolToInt(t.Overnight),
		now.UnixNano(),
		now.UnixNano(),
		nil,
	)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks WHERE id = ?`
	row := s.db.Conn().QueryRowContext(ctx, query, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Task, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, validationf(fmt.Sprintf("invalid status: %q", *filter.Status))
		}
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		if !filter.Priority.Valid() {
			return nil, validationf(fmt.Sprintf("invalid priority: %q", *filter.Priority))
		}
		clauses = append(clauses, "priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Overnight != nil {
		clauses = append(clauses, "overnight = ?")
		args = append(args, boolToInt(*filter.Overnight))
	}

	query := `SELECT ` + selectColumns + ` FROM tasks`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Task, 0, 16)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *Store) Update(ctx context.Context, id string, patch Patch) (Task, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return Task{}, validationf("Title is required")
		}
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, nullString(patch.Description.Value))
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Task{}, validationf(fmt.Sprintf("invalid status: %q", *patch.Status))
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
		if *patch.Status == StatusCompleted {
			// Stamped once per lifecycle; a later revert-then-recomplete
			// keeps the first completion time.
			sets = append(sets, "completed_at = COALESCE(completed_at, ?)")
			args = append(args, time.Now().UTC().UnixNano())
		}
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return Task{}, validationf(fmt.Sprintf("invalid priority: %q", *patch.Priority))
		}
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.DueDate.Set {
		sets = append(sets, "due_date = ?")
		args = append(args, nullTime(patch.DueDate.Value))
	}
	if patch.AssignedTo != nil {
		if strings.TrimSpace(*patch.AssignedTo) == "" {
			return Task{}, validationf("assigned_to cannot be empty")
		}
		sets = append(sets, "assigned_to = ?")
		args = append(args, *patch.AssignedTo)
	}
	if patch.Notes.Set {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(patch.Notes.Value))
	}
	if patch.Overnight != nil {
		sets = append(sets, "overnight = ?")
		args = append(args, boolToInt(*patch.Overnight))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().UnixNano())
	args = append(args, id)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := s.db.Conn().ExecContext(ctx, query, args...)
	if err != nil {
		return Task{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if affected == 0 {
		return Task{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t           Task
		description sql.NullString
		notes       sql.NullString
		dueDate     sql.NullInt64
		completedAt sql.NullInt64
		overnight   int
		createdAt   int64
		updatedAt   int64
		status      string
		priority    string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&description,
		&status,
		&priority,
		&dueDate,
		&t.AssignedTo,
		&t.CreatedBy,
		&notes,
		&overnight,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	t.Priority = Priority(priority)
	t.Overnight = overnight != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if description.Valid {
		t.Description = &description.String
	}
	if notes.Valid {
		t.Notes = &notes.String
	}
	if dueDate.Valid {
		due := time.Unix(0, dueDate.Int64).UTC()
		t.DueDate = &due
	}
	if completedAt.Valid {
		done := time.Unix(0, completedAt.Int64).UTC()
		t.CompletedAt = &done
	}
	return t, nil
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.UnixNano()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
