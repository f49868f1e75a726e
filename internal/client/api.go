package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

func taskPath(id string) string { return "/api/tasks/" + url.PathEscape(id) }

func projectPath(id string) string { return "/api/projects/" + url.PathEscape(id) }

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out struct {
		Profile models.Profile `json:"profile"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &out)
	return out.Profile, err
}

// ListProfiles returns every known profile.
func (c *Client) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var out struct {
		Profiles []models.Profile `json:"profiles"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/profiles", nil, &out)
	return out.Profiles, err
}

// SetRole changes the role of a profile.
func (c *Client) SetRole(ctx context.Context, id string, role models.Role) (models.Profile, error) {
	var out struct {
		Profile models.Profile `json:"profile"`
	}
	err := c.doJSON(ctx, http.MethodPut, "/api/profiles/"+url.PathEscape(id)+"/role", map[string]models.Role{"role": role}, &out)
	return out.Profile, err
}

// ListProjects returns all projects, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out struct {
		Projects []models.Project `json:"projects"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out.Projects, err
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, id string) (models.Project, error) {
	var out struct {
		Project models.Project `json:"project"`
	}
	err := c.doJSON(ctx, http.MethodGet, projectPath(id), nil, &out)
	return out.Project, err
}

// CreateProject validates locally, then creates a project.
func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Project{}, err
	}
	var out struct {
		Project models.Project `json:"project"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/projects", in, &out)
	return out.Project, err
}

// UpdateProject validates locally, then edits a project.
func (c *Client) UpdateProject(ctx context.Context, id string, in models.ProjectInput) (models.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Project{}, err
	}
	var out struct {
		Project models.Project `json:"project"`
	}
	err := c.doJSON(ctx, http.MethodPut, projectPath(id), in, &out)
	return out.Project, err
}

// DeleteProject removes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, projectPath(id), nil, nil)
}

// ProjectStats returns the task summary of a project.
func (c *Client) ProjectStats(ctx context.Context, id string) (board.Stats, error) {
	var out struct {
		Stats board.Stats `json:"stats"`
	}
	err := c.doJSON(ctx, http.MethodGet, projectPath(id)+"/stats", nil, &out)
	return out.Stats, err
}

func (c *Client) taskList(ctx context.Context, path string) ([]models.Task, error) {
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Tasks, err
}

func (c *Client) task(ctx context.Context, method, path string, body any) (models.Task, error) {
	var out struct {
		Task models.Task `json:"task"`
	}
	err := c.doJSON(ctx, method, path, body, &out)
	return out.Task, err
}

// ListTasks returns the joined tasks of a project, newest first.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	return c.taskList(ctx, projectPath(projectID)+"/tasks")
}

// ListSubtasks returns the children of a task.
func (c *Client) ListSubtasks(ctx context.Context, parentID string) ([]models.Task, error) {
	return c.taskList(ctx, taskPath(parentID)+"/subtasks")
}

// MyTasks returns the caller's assigned tasks, soonest due date first.
func (c *Client) MyTasks(ctx context.Context) ([]models.Task, error) {
	return c.taskList(ctx, "/api/me/tasks")
}

// MyStats summarizes the caller's assigned tasks.
func (c *Client) MyStats(ctx context.Context) (board.Stats, error) {
	var out struct {
		Stats board.Stats `json:"stats"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/me/stats", nil, &out)
	return out.Stats, err
}

// Calendar returns dated tasks grouped by day. Nil bounds are open.
func (c *Client) Calendar(ctx context.Context, from, to *models.Date) ([]board.CalendarDay, error) {
	q := url.Values{}
	if from != nil {
		q.Set("from", from.String())
	}
	if to != nil {
		q.Set("to", to.String())
	}
	path := "/api/calendar"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Calendar []board.CalendarDay `json:"calendar"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Calendar, err
}

// Upcoming returns the caller's soonest open deadlines; limit <= 0 uses the
// server default.
func (c *Client) Upcoming(ctx context.Context, limit int) ([]models.Task, error) {
	path := "/api/tasks/upcoming"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.taskList(ctx, path)
}

// GetTask fetches the joined view of one task.
func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	return c.task(ctx, http.MethodGet, taskPath(id), nil)
}

// CreateTask validates locally, then creates a task in a project.
func (c *Client) CreateTask(ctx context.Context, projectID string, in models.TaskInput) (models.Task, error) {
	in.Normalize()
	if err := in.Validate(true); err != nil {
		return models.Task{}, err
	}
	return c.task(ctx, http.MethodPost, projectPath(projectID)+"/tasks", in)
}

// UpdateTask validates locally, then edits task fields.
func (c *Client) UpdateTask(ctx context.Context, id string, in models.TaskInput) (models.Task, error) {
	in.Normalize()
	if err := in.Validate(false); err != nil {
		return models.Task{}, err
	}
	return c.task(ctx, http.MethodPut, taskPath(id), in)
}

// UpdateTaskStatus moves a task to another column and returns the confirmed row.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.Status) (models.Task, error) {
	return c.task(ctx, http.MethodPut, taskPath(id)+"/status", map[string]models.Status{"status": status})
}

// SetAssignee changes or clears (nil) the assignee of a task.
func (c *Client) SetAssignee(ctx context.Context, id string, assignee *string) (models.Task, error) {
	return c.task(ctx, http.MethodPut, taskPath(id)+"/assignee", map[string]*string{"assigned_to": assignee})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// ListActivity returns the latest audit entries of a task.
func (c *Client) ListActivity(ctx context.Context, taskID string) ([]models.Activity, error) {
	var out struct {
		Activity []models.Activity `json:"activity"`
	}
	err := c.doJSON(ctx, http.MethodGet, taskPath(taskID)+"/activity", nil, &out)
	return out.Activity, err
}

// ListComments returns a task's comments, oldest first.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var out struct {
		Comments []models.Comment `json:"comments"`
	}
	err := c.doJSON(ctx, http.MethodGet, taskPath(taskID)+"/comments", nil, &out)
	return out.Comments, err
}

// GetComment fetches one comment with its author name.
func (c *Client) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var out struct {
		Comment models.Comment `json:"comment"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/comments/"+url.PathEscape(id), nil, &out)
	return out.Comment, err
}

// CreateComment validates locally, then appends a comment.
func (c *Client) CreateComment(ctx context.Context, taskID string, in models.CommentInput) (models.Comment, error) {
	if err := in.Validate(); err != nil {
		return models.Comment{}, err
	}
	var out struct {
		Comment models.Comment `json:"comment"`
	}
	err := c.doJSON(ctx, http.MethodPost, taskPath(taskID)+"/comments", in, &out)
	return out.Comment, err
}

// UploadAttachment sends a file for use in a comment. Files above the
// configured ceiling are rejected before any bytes leave the process; size
// -1 means unknown, in which case the content is buffered and measured.
func (c *Client) UploadAttachment(ctx context.Context, taskID, name string, size int64, r io.Reader) (models.Attachment, error) {
	if size > c.maxUpload {
		return models.Attachment{}, fmt.Errorf("%s is %d bytes, limit %d: %w", name, size, c.maxUpload, models.ErrTooLarge)
	}
	content, err := io.ReadAll(io.LimitReader(r, c.maxUpload+1))
	if err != nil {
		return models.Attachment{}, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(content)) > c.maxUpload {
		return models.Attachment{}, fmt.Errorf("%s exceeds %d bytes: %w", name, c.maxUpload, models.ErrTooLarge)
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return models.Attachment{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.Attachment{}, fmt.Errorf("build upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, taskPath(taskID)+"/attachments", body)
	if err != nil {
		return models.Attachment{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		Attachment models.Attachment `json:"attachment"`
	}
	err = c.send(req, &out)
	return out.Attachment, err
}
