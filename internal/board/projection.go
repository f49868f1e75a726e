package board

import (
	"strings"

	"taskboard/internal/models"
)

// Filter sentinels accepted by ViewState.
const (
	FilterAll        = "all"
	FilterUnassigned = "unassigned"
)

// ViewState holds the board filters. Empty Status/Assignee behave like "all".
type ViewState struct {
	Search   string `json:"search,omitempty"`
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// Matches reports whether t passes every filter.
func (vs ViewState) Matches(t models.Task) bool {
	if q := strings.TrimSpace(vs.Search); q != "" {
		q = strings.ToLower(q)
		inTitle := strings.Contains(strings.ToLower(t.Title), q)
		inDesc := t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
		if !inTitle && !inDesc {
			return false
		}
	}
	if vs.Status != "" && vs.Status != FilterAll && string(t.Status) != vs.Status {
		return false
	}
	switch vs.Assignee {
	case "", FilterAll:
	case FilterUnassigned:
		if t.AssignedTo != nil {
			return false
		}
	default:
		if t.AssignedTo == nil || *t.AssignedTo != vs.Assignee {
			return false
		}
	}
	return true
}

// Board is the filtered task list split into status columns.
type Board struct {
	Todo       []models.Task `json:"todo"`
	InProgress []models.Task `json:"in_progress"`
	Completed  []models.Task `json:"completed"`
}

// Project filters tasks with vs and partitions them by status, keeping input order.
func Project(tasks []models.Task, vs ViewState) Board {
	b := Board{Todo: []models.Task{}, InProgress: []models.Task{}, Completed: []models.Task{}}
	for _, t := range tasks {
		if !vs.Matches(t) {
			continue
		}
		switch t.Status {
		case models.StatusTodo:
			b.Todo = append(b.Todo, t)
		case models.StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case models.StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
	}
	return b
}

// Column returns the tasks in one status column.
func (b Board) Column(s models.Status) []models.Task {
	switch s {
	case models.StatusTodo:
		return b.Todo
	case models.StatusInProgress:
		return b.InProgress
	case models.StatusCompleted:
		return b.Completed
	}
	return nil
}

// Len is the number of tasks across all columns.
func (b Board) Len() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Completed)
}
