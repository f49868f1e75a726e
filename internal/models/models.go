package models

import (
	"encoding/json"
	"time"
)

// Status is the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Role is the authorization level of a profile.
type Role string

const (
	RoleProjectManager Role = "project_manager"
	RoleMember         Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleProjectManager || r == RoleMember
}

// Project groups the tasks shown on one board.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileRef is the denormalized author/assignee shape returned by joined reads.
type ProfileRef struct {
	FullName string `json:"full_name"`
}

// Profile is a user known to the service.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// Elevated reports whether the profile may manage projects and move tasks.
func (p Profile) Elevated() bool {
	return p.Role == RoleProjectManager
}

// Task represents a single card on the board, as read through the joined view.
type Task struct {
	ID             string      `json:"id"`
	ProjectID      string      `json:"project_id"`
	Title          string      `json:"title"`
	Description    *string     `json:"description"`
	Status         Status      `json:"status"`
	Priority       Priority    `json:"priority"`
	Tags           []string    `json:"tags"`
	DueDate        *Date       `json:"due_date"`
	EstimatedHours *float64    `json:"estimated_hours"`
	AssignedTo     *string     `json:"assigned_to"`
	ParentTaskID   *string     `json:"parent_task_id"`
	CreatedBy      string      `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	Assignee       *ProfileRef `json:"profiles"`
	ProjectName    string      `json:"project_name,omitempty"`
}

// Key returns the row identity used by client-side stores.
func (t Task) Key() string { return t.ID }

// Comment is an append-only note on a task, optionally carrying an attachment.
type Comment struct {
	ID             string     `json:"id"`
	TaskID         string     `json:"task_id"`
	UserID         string     `json:"user_id"`
	Content        string     `json:"content"`
	AttachmentURL  *string    `json:"attachment_url"`
	AttachmentName *string    `json:"attachment_name"`
	Mentions       []string   `json:"mentions,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Author         ProfileRef `json:"profiles"`
}

// Key returns the row identity used by client-side stores.
func (c Comment) Key() string { return c.ID }

// Activity actions recorded by the service.
const (
	ActionTaskCreated       = "task_created"
	ActionStatusChanged     = "status_changed"
	ActionAssignmentChanged = "assignment_changed"
)

// Activity is one entry of a task's audit trail.
type Activity struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	Author    ProfileRef      `json:"profiles"`
}

// StatusChange is the detail payload of a status_changed activity.
type StatusChange struct {
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
}

// AssignmentChange is the detail payload of an assignment_changed activity.
type AssignmentChange struct {
	OldAssignee *string `json:"old_assignee"`
	NewAssignee *string `json:"new_assignee"`
}

// Attachment is the result of a blob upload.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}
