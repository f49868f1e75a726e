package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"taskboard/internal/models"
)

// ListActivity returns the latest entries of a task's audit trail, newest first.
func (s *Store) ListActivity(ctx context.Context, taskID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT a.id, a.task_id, a.action, a.details, a.user_id, a.created_at, COALESCE(p.full_name, '')
        FROM activity_log a
        LEFT JOIN profiles p ON p.id = a.user_id
        WHERE a.task_id = ?
        ORDER BY a.created_at DESC, a.rowid DESC
        LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var (
			a       models.Activity
			details string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Action, &details, &a.UserID, &a.CreatedAt, &a.Author.FullName); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Details = json.RawMessage(details)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *Store) insertActivity(ctx context.Context, q queryer, taskID, userID, action string, details any) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO activity_log(id, task_id, action, details, user_id, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		newID(), taskID, action, string(data), userID, s.timestamp())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
