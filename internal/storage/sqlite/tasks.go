package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

// taskSelect reads tasks through the joined view the board renders from.
const taskSelect = `SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority, t.tags,
        t.due_date, t.estimated_hours, t.assigned_to, t.parent_task_id, t.created_by, t.created_at,
        p.full_name, pr.name
    FROM tasks t
    JOIN projects pr ON pr.id = t.project_id
    LEFT JOIN profiles p ON p.id = t.assigned_to`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t                                 models.Task
		desc, tags, due, assigned, parent sql.NullString
		assigneeName                      sql.NullString
		hours                             sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &desc, &t.Status, &t.Priority, &tags,
		&due, &hours, &assigned, &parent, &t.CreatedBy, &t.CreatedAt, &assigneeName, &t.ProjectName)
	if err != nil {
		return models.Task{}, err
	}
	t.Description = stringPtr(desc)
	t.AssignedTo = stringPtr(assigned)
	t.ParentTaskID = stringPtr(parent)
	if hours.Valid {
		h := hours.Float64
		t.EstimatedHours = &h
	}
	if due.Valid {
		d, err := models.ParseDate(due.String)
		if err != nil {
			return models.Task{}, err
		}
		t.DueDate = &d
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return models.Task{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if t.AssignedTo != nil && assigneeName.Valid {
		t.Assignee = &models.ProfileRef{FullName: assigneeName.String}
	}
	return t, nil
}

func (s *Store) queryTasks(ctx context.Context, q queryer, where string, args ...any) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, taskSelect+" "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListTasks returns the tasks of a project, newest first.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	return s.queryTasks(ctx, s.db, `WHERE t.project_id = ? ORDER BY t.created_at DESC, t.rowid DESC`, projectID)
}

// ListSubtasks returns the children of a task, newest first.
func (s *Store) ListSubtasks(ctx context.Context, parentID string) ([]models.Task, error) {
	return s.queryTasks(ctx, s.db, `WHERE t.parent_task_id = ? ORDER BY t.created_at DESC, t.rowid DESC`, parentID)
}

// ListAssigned returns the tasks assigned to userID across all projects,
// soonest due date first. Undated tasks come last.
func (s *Store) ListAssigned(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx, s.db, `WHERE t.assigned_to = ?
        ORDER BY t.due_date IS NULL, t.due_date ASC, t.created_at DESC, t.rowid DESC`, userID)
}

// ListDated returns every task with a due date, soonest first.
func (s *Store) ListDated(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, s.db, `WHERE t.due_date IS NOT NULL ORDER BY t.due_date ASC, t.created_at ASC, t.rowid ASC`)
}

// GetTask retrieves a task by id through the joined view.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	return s.getTask(ctx, s.db, id)
}

func (s *Store) getTask(ctx context.Context, q queryer, id string) (models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a new task for a project and records a task_created activity.
func (s *Store) CreateTask(ctx context.Context, projectID, actorID string, in models.TaskInput) (models.Task, error) {
	in.Normalize()
	if err := in.Validate(true); err != nil {
		return models.Task{}, err
	}

	status := models.StatusTodo
	if in.Status != nil {
		status = *in.Status
	}
	priority := models.PriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return models.Task{}, err
	}

	id := newID()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getProject(ctx, tx, projectID); err != nil {
			return err
		}
		if in.AssignedTo != nil {
			if _, err := s.getProfile(ctx, tx, *in.AssignedTo); err != nil {
				return err
			}
		}
		if in.ParentTaskID != nil {
			parent, err := s.getTask(ctx, tx, *in.ParentTaskID)
			if err != nil {
				return err
			}
			if parent.ProjectID != projectID {
				return &models.ValidationError{Field: "parent_task_id", Message: "parent task belongs to another project"}
			}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id, project_id, title, description, status, priority, tags,
                due_date, estimated_hours, assigned_to, parent_task_id, created_by, created_at)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, *in.Title, nullString(emptyToNil(in.Description)), status, priority, tags,
			dueValue(in.DueDate), floatValue(in.EstimatedHours), nullString(in.AssignedTo), nullString(in.ParentTaskID),
			actorID, s.timestamp())
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return s.insertActivity(ctx, tx, id, actorID, models.ActionTaskCreated, map[string]any{"title": *in.Title})
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTask edits task fields. Completed tasks are frozen. A status change
// records a status_changed activity and an assignee change an assignment_changed one.
func (s *Store) UpdateTask(ctx context.Context, id, actorID string, in models.TaskInput) (models.Task, error) {
	in.Normalize()
	if err := in.Validate(false); err != nil {
		return models.Task{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return fmt.Errorf("task %s: %w", id, models.ErrTaskCompleted)
		}

		next := current
		if in.Title != nil {
			next.Title = *in.Title
		}
		if in.Description != nil {
			next.Description = emptyToNil(in.Description)
		}
		if in.Status != nil {
			next.Status = *in.Status
		}
		if in.Priority != nil {
			next.Priority = *in.Priority
		}
		if in.Tags != nil {
			next.Tags = *in.Tags
		}
		if in.DueDate != nil {
			next.DueDate = in.DueDate
		} else if in.ClearDueDate {
			next.DueDate = nil
		}
		if in.EstimatedHours != nil {
			next.EstimatedHours = in.EstimatedHours
		}

		tags, err := encodeTags(&next.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, tags = ?,
                due_date = ?, estimated_hours = ? WHERE id = ?`,
			next.Title, nullString(next.Description), next.Status, next.Priority, tags,
			dueValue(next.DueDate), floatValue(next.EstimatedHours), id)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if next.Status != current.Status {
			change := models.StatusChange{OldStatus: current.Status, NewStatus: next.Status}
			if err := s.insertActivity(ctx, tx, id, actorID, models.ActionStatusChanged, change); err != nil {
				return err
			}
		}
		if in.AssignedTo != nil && !sameRef(in.AssignedTo, current.AssignedTo) {
			return s.assign(ctx, tx, id, actorID, current.AssignedTo, in.AssignedTo)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTaskStatus moves a task to another column.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, actorID string, status models.Status) (models.Task, error) {
	return s.UpdateTask(ctx, id, actorID, models.TaskInput{Status: &status})
}

// SetAssignee changes or clears (nil) the assignee of a task.
func (s *Store) SetAssignee(ctx context.Context, id, actorID string, assignee *string) (models.Task, error) {
	if assignee != nil && *assignee == "" {
		assignee = nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if sameRef(current.AssignedTo, assignee) {
			return nil
		}
		return s.assign(ctx, tx, id, actorID, current.AssignedTo, assignee)
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, id)
}

func (s *Store) assign(ctx context.Context, tx *sql.Tx, id, actorID string, from, to *string) error {
	if to != nil {
		if _, err := s.getProfile(ctx, tx, *to); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assigned_to = ? WHERE id = ?`, nullString(to), id); err != nil {
		return fmt.Errorf("assign task: %w", err)
	}
	return s.insertActivity(ctx, tx, id, actorID, models.ActionAssignmentChanged,
		models.AssignmentChange{OldAssignee: from, NewAssignee: to})
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("delete task: %w", err)
	}
	if err := checkAffected(res, "task "+id, models.ErrNotFound); err != nil {
		return models.Task{}, err
	}
	return current, nil
}

func encodeTags(tags *[]string) (sql.NullString, error) {
	if tags == nil || len(*tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(*tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode tags: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func dueValue(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func floatValue(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
