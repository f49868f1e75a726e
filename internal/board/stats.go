package board

import (
	"math"
	"sort"

	"taskboard/internal/models"
)

// AssigneeLoad counts the tasks held by one assignee.
type AssigneeLoad struct {
	Name  string `json:"name"`
	Tasks int    `json:"tasks"`
}

// Stats summarizes a task list.
type Stats struct {
	Total          int            `json:"total"`
	Todo           int            `json:"todo"`
	InProgress     int            `json:"in_progress"`
	Completed      int            `json:"completed"`
	Overdue        int            `json:"overdue"`
	CompletionRate int            `json:"completion_rate"`
	EstimatedHours float64        `json:"estimated_hours"`
	ByAssignee     []AssigneeLoad `json:"by_assignee"`
}

// Summarize computes status counts, the rounded completion percentage, overdue
// tasks relative to today, total estimated hours and the load per assignee.
func Summarize(tasks []models.Task, today models.Date) Stats {
	st := Stats{Total: len(tasks), ByAssignee: []AssigneeLoad{}}
	load := map[string]int{}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusTodo:
			st.Todo++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusCompleted:
			st.Completed++
		}
		if Overdue(t, today) {
			st.Overdue++
		}
		if t.EstimatedHours != nil {
			st.EstimatedHours += *t.EstimatedHours
		}
		if t.Assignee != nil {
			load[t.Assignee.FullName]++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	for name, n := range load {
		st.ByAssignee = append(st.ByAssignee, AssigneeLoad{Name: name, Tasks: n})
	}
	sort.Slice(st.ByAssignee, func(i, j int) bool {
		if st.ByAssignee[i].Tasks != st.ByAssignee[j].Tasks {
			return st.ByAssignee[i].Tasks > st.ByAssignee[j].Tasks
		}
		return st.ByAssignee[i].Name < st.ByAssignee[j].Name
	})
	return st
}

// Upcoming returns up to limit non-completed tasks with a due date, soonest first.
func Upcoming(tasks []models.Task, limit int) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if t.DueDate != nil && !t.Status.Terminal() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Overdue reports whether an open task's due date is before today.
func Overdue(t models.Task, today models.Date) bool {
	return t.DueDate != nil && !t.Status.Terminal() && t.DueDate.Before(today)
}

// CalendarEntry is a dated task as shown on the calendar.
type CalendarEntry struct {
	models.Task
	Overdue bool `json:"overdue"`
}

// CalendarDay holds the tasks due on one date.
type CalendarDay struct {
	Date  models.Date     `json:"date"`
	Tasks []CalendarEntry `json:"tasks"`
}

// Calendar groups dated tasks by due date, earliest day first. Undated tasks
// are skipped; within a day the input order is kept.
func Calendar(tasks []models.Task, today models.Date) []CalendarDay {
	dated := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate != nil {
			dated = append(dated, t)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].DueDate.Before(*dated[j].DueDate)
	})

	days := []CalendarDay{}
	for _, t := range dated {
		if n := len(days); n == 0 || days[n-1].Date != *t.DueDate {
			days = append(days, CalendarDay{Date: *t.DueDate})
		}
		last := &days[len(days)-1]
		last.Tasks = append(last.Tasks, CalendarEntry{Task: t, Overdue: Overdue(t, today)})
	}
	return days
}
