package board

import (
	"context"

	"taskboard/internal/models"
)

// Gateway is the request path for task reads and status mutations.
type Gateway interface {
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.Status) (models.Task, error)
}

// CommentSource reads the comment thread of a task.
type CommentSource interface {
	ListComments(ctx context.Context, taskID string) ([]models.Comment, error)
	GetComment(ctx context.Context, id string) (models.Comment, error)
}

// Authorizer reports the acting user's authorization level.
type Authorizer interface {
	Elevated() bool
}

// TaskLoader builds the loader for one project's task list.
func TaskLoader(gw Gateway, projectID string) Loader[models.Task] {
	return Loader[models.Task]{
		All: func(ctx context.Context) ([]models.Task, error) {
			return gw.ListTasks(ctx, projectID)
		},
		One: gw.GetTask,
		Accept: func(t models.Task) bool {
			return t.ProjectID == projectID
		},
	}
}

// CommentLoader builds the loader for one task's comment thread.
func CommentLoader(src CommentSource, taskID string) Loader[models.Comment] {
	return Loader[models.Comment]{
		All: func(ctx context.Context) ([]models.Comment, error) {
			return src.ListComments(ctx, taskID)
		},
		One: src.GetComment,
		Accept: func(c models.Comment) bool {
			return c.TaskID == taskID
		},
	}
}

// NewTaskStore returns an empty newest-first task store.
func NewTaskStore() *RowStore[models.Task] {
	return NewRowStore(models.Task.Key, NewestFirst)
}

// NewCommentStore returns an empty oldest-first comment store.
func NewCommentStore() *RowStore[models.Comment] {
	return NewRowStore(models.Comment.Key, OldestFirst)
}
