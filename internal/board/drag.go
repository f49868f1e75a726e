package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"taskboard/internal/models"
)

var (
	// ErrNotDragging is returned when a gesture call arrives while idle.
	ErrNotDragging = errors.New("no drag in progress")
	// ErrAlreadyDragging is returned by Start while another card is held.
	ErrAlreadyDragging = errors.New("drag already in progress")
)

// Rect is an axis-aligned box in board coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) corners() [4][2]float64 {
	return [4][2]float64{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X, r.Y + r.H},
		{r.X + r.W, r.Y + r.H},
	}
}

// cornerDistance sums the distances between matching corners of a and b.
func cornerDistance(a, b Rect) float64 {
	ac, bc := a.corners(), b.corners()
	var sum float64
	for i := range ac {
		sum += math.Hypot(ac[i][0]-bc[i][0], ac[i][1]-bc[i][1])
	}
	return sum
}

// Column is a drop target on the board.
type Column struct {
	Status models.Status
	Rect   Rect
}

// ClosestColumn returns the column whose corners are nearest to card.
func ClosestColumn(card Rect, columns []Column) (models.Status, bool) {
	best, found := math.Inf(1), models.Status("")
	for _, col := range columns {
		if d := cornerDistance(card, col.Rect); d < best {
			best, found = d, col.Status
		}
	}
	return found, found != ""
}

// DropOutcome describes what a successful drop did.
type DropOutcome int

const (
	// DropDiscarded means there was no target or the card vanished; nothing was sent.
	DropDiscarded DropOutcome = iota
	// DropUnchanged means the card was released over its own column.
	DropUnchanged
	// DropMoved means one status update was confirmed by the gateway.
	DropMoved
)

func (o DropOutcome) String() string {
	switch o {
	case DropUnchanged:
		return "unchanged"
	case DropMoved:
		return "moved"
	}
	return "discarded"
}

// DragController tracks one pointer drag at a time. Moves are confirmed by the
// gateway before the store changes; the confirmed row is applied on success
// and the store is left untouched on failure.
type DragController struct {
	store   *RowStore[models.Task]
	gateway Gateway
	actor   Authorizer
	columns []Column
	logger  *slog.Logger

	mu       sync.Mutex
	dragging bool
	taskID   string
	target   models.Status
}

// NewDragController creates an idle controller.
func NewDragController(store *RowStore[models.Task], gateway Gateway, actor Authorizer, columns []Column, logger *slog.Logger) *DragController {
	if logger == nil {
		logger = slog.Default()
	}
	return &DragController{store: store, gateway: gateway, actor: actor, columns: columns, logger: logger}
}

// Start picks up the card with taskID.
func (d *DragController) Start(taskID string) error {
	if _, ok := d.store.Get(taskID); !ok {
		return fmt.Errorf("task %s: %w", taskID, models.ErrNotFound)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragging {
		return ErrAlreadyDragging
	}
	d.dragging, d.taskID, d.target = true, taskID, ""
	return nil
}

// Dragging reports the held task id, if any.
func (d *DragController) Dragging() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.taskID, d.dragging
}

// Move updates the advisory drop target for the card's current position.
func (d *DragController) Move(card Rect) (models.Status, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dragging {
		return "", false
	}
	d.target, _ = ClosestColumn(card, d.columns)
	return d.target, d.target != ""
}

// Cancel returns to idle without any request.
func (d *DragController) Cancel() {
	d.mu.Lock()
	d.dragging, d.taskID, d.target = false, "", ""
	d.mu.Unlock()
}

// Drop releases the card over the current target.
func (d *DragController) Drop(ctx context.Context) (DropOutcome, error) {
	d.mu.Lock()
	if !d.dragging {
		d.mu.Unlock()
		return DropDiscarded, ErrNotDragging
	}
	taskID, target := d.taskID, d.target
	d.dragging, d.taskID, d.target = false, "", ""
	d.mu.Unlock()

	return d.commit(ctx, taskID, target)
}

// DropOn releases the card over the column for status, skipping pointer geometry.
func (d *DragController) DropOn(ctx context.Context, status models.Status) (DropOutcome, error) {
	if !status.Valid() {
		return DropDiscarded, &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	d.mu.Lock()
	if !d.dragging {
		d.mu.Unlock()
		return DropDiscarded, ErrNotDragging
	}
	taskID := d.taskID
	d.dragging, d.taskID, d.target = false, "", ""
	d.mu.Unlock()

	return d.commit(ctx, taskID, status)
}

func (d *DragController) commit(ctx context.Context, taskID string, target models.Status) (DropOutcome, error) {
	if target == "" {
		return DropDiscarded, nil
	}
	task, ok := d.store.Get(taskID)
	if !ok {
		return DropDiscarded, nil
	}
	if task.Status == target {
		return DropUnchanged, nil
	}
	if d.actor == nil || !d.actor.Elevated() {
		return DropDiscarded, fmt.Errorf("move task %s: %w", taskID, models.ErrForbidden)
	}
	if task.Status.Terminal() {
		return DropDiscarded, fmt.Errorf("move task %s: %w", taskID, models.ErrTaskCompleted)
	}

	updated, err := d.gateway.UpdateTaskStatus(ctx, taskID, target)
	if err != nil {
		d.logger.Warn("status update failed",
			slog.String("task_id", taskID),
			slog.String("status", string(target)),
			slog.String("error", err.Error()))
		return DropDiscarded, fmt.Errorf("move task %s: %w", taskID, err)
	}
	d.store.ApplyUpdate(updated)
	return DropMoved, nil
}
