package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

const commentSelect = `SELECT c.id, c.task_id, c.user_id, c.content, c.attachment_url, c.attachment_name,
        c.created_at, COALESCE(p.full_name, '')
    FROM comments c
    LEFT JOIN profiles p ON p.id = c.user_id`

func scanComment(row interface{ Scan(...any) error }) (models.Comment, error) {
	var (
		c         models.Comment
		url, name sql.NullString
	)
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &url, &name, &c.CreatedAt, &c.Author.FullName); err != nil {
		return models.Comment{}, err
	}
	c.AttachmentURL = stringPtr(url)
	c.AttachmentName = stringPtr(name)
	c.Mentions = models.ParseMentions(c.Content)
	return c, nil
}

// ListComments returns the comments of a task, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, commentSelect+` WHERE c.task_id = ? ORDER BY c.created_at ASC, c.rowid ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetComment fetches a single comment with its author name.
func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// CreateComment appends a comment to a task.
func (s *Store) CreateComment(ctx context.Context, taskID, userID string, in models.CommentInput) (models.Comment, error) {
	if err := in.Validate(); err != nil {
		return models.Comment{}, err
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return models.Comment{}, err
	}

	id := newID()
	_, err := s.db.ExecContext(ctx, `INSERT INTO comments(id, task_id, user_id, content, attachment_url, attachment_name, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		id, taskID, userID, in.Content, nullString(in.AttachmentURL), nullString(in.AttachmentName), s.timestamp())
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return s.GetComment(ctx, id)
}
