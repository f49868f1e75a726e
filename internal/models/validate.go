package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxProjectName        = 100
	MaxProjectDescription = 500
	MaxTaskTitle          = 200
	MaxTaskDescription    = 2000
)

// ProjectInput is the editable part of a project.
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Normalize trims fields and turns a blank description into nil.
func (in *ProjectInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
}

// Validate checks the rules in order and reports the first violation.
func (in ProjectInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxProjectName {
		return invalid("name", "name must be at most %d characters", MaxProjectName)
	}
	if in.Description != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Description)) > MaxProjectDescription {
		return invalid("description", "description must be at most %d characters", MaxProjectDescription)
	}
	return nil
}

// TaskInput carries the fields accepted when creating or editing a task.
// Nil pointers mean "leave unchanged" on edit.
type TaskInput struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Status         *Status   `json:"status"`
	Priority       *Priority `json:"priority"`
	Tags           *[]string `json:"tags"`
	DueDate        *Date     `json:"due_date"`
	ClearDueDate   bool      `json:"clear_due_date"`
	EstimatedHours *float64  `json:"estimated_hours"`
	AssignedTo     *string   `json:"assigned_to"`
	ParentTaskID   *string   `json:"parent_task_id"`
}

// Normalize trims text fields and de-duplicates tags.
func (in *TaskInput) Normalize() {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	if in.Tags != nil {
		tags := NormalizeTags(*in.Tags)
		in.Tags = &tags
	}
	if in.AssignedTo != nil && strings.TrimSpace(*in.AssignedTo) == "" {
		in.AssignedTo = nil
	}
}

// Validate checks an edit. requireTitle is set for creation.
func (in TaskInput) Validate(requireTitle bool) error {
	if in.Title != nil || requireTitle {
		title := ""
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		if title == "" {
			return invalid("title", "title is required")
		}
		if utf8.RuneCountInString(title) > MaxTaskTitle {
			return invalid("title", "title must be at most %d characters", MaxTaskTitle)
		}
	}
	if in.Description != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Description)) > MaxTaskDescription {
		return invalid("description", "description must be at most %d characters", MaxTaskDescription)
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalid("status", "unknown status %q", string(*in.Status))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return invalid("priority", "unknown priority %q", string(*in.Priority))
	}
	if in.EstimatedHours != nil && *in.EstimatedHours < 0 {
		return invalid("estimated_hours", "hours must be a positive number")
	}
	return nil
}

// CommentInput is a new comment, optionally referencing an uploaded attachment.
type CommentInput struct {
	Content        string  `json:"content"`
	AttachmentURL  *string `json:"attachment_url"`
	AttachmentName *string `json:"attachment_name"`
}

// Validate checks the comment has text and a complete attachment reference.
func (in CommentInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return invalid("content", "content is required")
	}
	if (in.AttachmentURL == nil) != (in.AttachmentName == nil) {
		return invalid("attachment", "attachment url and name must be set together")
	}
	return nil
}

// NormalizeTags trims tags, drops blanks and keeps the first occurrence of each.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

var mentionPattern = regexp.MustCompile(`@\[([^\]]+)\]\(([^)]+)\)`)

// ParseMentions returns the user ids referenced as @[Name](id), in order, without repeats.
func ParseMentions(content string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		id := m[2]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
