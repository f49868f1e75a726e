package board

import (
	"context"
	"errors"
	"testing"

	"taskboard/internal/models"
)

// Three 100x400 columns laid out left to right with a 20px gutter.
var testColumns = []Column{
	{Status: models.StatusTodo, Rect: Rect{X: 0, Y: 0, W: 100, H: 400}},
	{Status: models.StatusInProgress, Rect: Rect{X: 120, Y: 0, W: 100, H: 400}},
	{Status: models.StatusCompleted, Rect: Rect{X: 240, Y: 0, W: 100, H: 400}},
}

// card over the in-progress column
var overInProgress = Rect{X: 125, Y: 40, W: 90, H: 60}

func newDragFixture(actor Authorizer, tasks ...models.Task) (*DragController, *RowStore[models.Task], *fakeGateway) {
	gw := &fakeGateway{}
	store := NewTaskStore()
	for _, t := range tasks {
		gw.put(t)
	}
	store.ReplaceAll(tasks)
	return NewDragController(store, gw, actor, testColumns, nil), store, gw
}

func TestClosestColumn(t *testing.T) {
	cases := []struct {
		name string
		card Rect
		want models.Status
	}{
		{"left", Rect{X: 5, Y: 10, W: 90, H: 60}, models.StatusTodo},
		{"middle", overInProgress, models.StatusInProgress},
		{"right edge", Rect{X: 300, Y: 300, W: 90, H: 60}, models.StatusCompleted},
		{"gutter leaning right", Rect{X: 110, Y: 0, W: 90, H: 60}, models.StatusInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ClosestColumn(tc.card, testColumns)
			if !ok || got != tc.want {
				t.Fatalf("got %q (%v), want %q", got, ok, tc.want)
			}
		})
	}
	if _, ok := ClosestColumn(overInProgress, nil); ok {
		t.Fatal("no columns should yield no target")
	}
}

func TestDropAuthorizedIssuesOneRequest(t *testing.T) {
	ctrl, store, gw := newDragFixture(manager, task("a", models.StatusTodo))

	if err := ctrl.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if target, ok := ctrl.Move(overInProgress); !ok || target != models.StatusInProgress {
		t.Fatalf("target = %q", target)
	}
	outcome, err := ctrl.Drop(context.Background())
	if err != nil || outcome != DropMoved {
		t.Fatalf("drop = %v, %v", outcome, err)
	}

	calls := gw.statusCalls()
	if len(calls) != 1 || calls[0] != (statusCall{ID: "a", Status: models.StatusInProgress}) {
		t.Fatalf("calls = %+v", calls)
	}
	if got, _ := store.Get("a"); got.Status != models.StatusInProgress {
		t.Fatalf("confirmed row not applied: %s", got.Status)
	}
	if _, dragging := ctrl.Dragging(); dragging {
		t.Fatal("controller not idle after drop")
	}
}

func TestDropUnauthorizedIssuesNoRequest(t *testing.T) {
	ctrl, store, gw := newDragFixture(member, task("a", models.StatusTodo))

	_ = ctrl.Start("a")
	ctrl.Move(overInProgress)
	_, err := ctrl.Drop(context.Background())
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if n := len(gw.statusCalls()); n != 0 {
		t.Fatalf("issued %d requests", n)
	}
	if got, _ := store.Get("a"); got.Status != models.StatusTodo {
		t.Fatalf("store mutated: %s", got.Status)
	}
}

func TestDropCompletedTaskIsRejected(t *testing.T) {
	ctrl, _, gw := newDragFixture(manager, task("a", models.StatusCompleted))

	_ = ctrl.Start("a")
	_, err := ctrl.DropOn(context.Background(), models.StatusTodo)
	if !errors.Is(err, models.ErrTaskCompleted) {
		t.Fatalf("err = %v", err)
	}
	if len(gw.statusCalls()) != 0 {
		t.Fatal("request issued for completed task")
	}
}

func TestDropWithoutTargetOrSameColumn(t *testing.T) {
	ctrl, _, gw := newDragFixture(member, task("a", models.StatusInProgress))

	_ = ctrl.Start("a")
	outcome, err := ctrl.Drop(context.Background())
	if err != nil || outcome != DropDiscarded {
		t.Fatalf("no target: %v, %v", outcome, err)
	}

	// a member may drop onto the card's own column
	_ = ctrl.Start("a")
	ctrl.Move(overInProgress)
	outcome, err = ctrl.Drop(context.Background())
	if err != nil || outcome != DropUnchanged {
		t.Fatalf("same column: %v, %v", outcome, err)
	}
	if len(gw.statusCalls()) != 0 {
		t.Fatal("request issued without a status change")
	}
}

func TestDropGatewayFailureLeavesStore(t *testing.T) {
	ctrl, store, gw := newDragFixture(manager, task("a", models.StatusTodo))
	gw.updateErr = errBackend

	_ = ctrl.Start("a")
	_, err := ctrl.DropOn(context.Background(), models.StatusCompleted)
	if !errors.Is(err, errBackend) {
		t.Fatalf("err = %v", err)
	}
	if len(gw.statusCalls()) != 1 {
		t.Fatalf("calls = %+v", gw.statusCalls())
	}
	if got, _ := store.Get("a"); got.Status != models.StatusTodo {
		t.Fatalf("store mutated after failure: %s", got.Status)
	}
}

func TestDragStateMachine(t *testing.T) {
	ctrl, _, _ := newDragFixture(manager, task("a", models.StatusTodo), task("b", models.StatusTodo))

	if _, err := ctrl.Drop(context.Background()); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("drop while idle: %v", err)
	}
	if err := ctrl.Start("ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("start unknown: %v", err)
	}
	if err := ctrl.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := ctrl.Start("b"); !errors.Is(err, ErrAlreadyDragging) {
		t.Fatalf("second start: %v", err)
	}
	if id, ok := ctrl.Dragging(); !ok || id != "a" {
		t.Fatalf("dragging = %q, %v", id, ok)
	}

	ctrl.Cancel()
	if _, ok := ctrl.Dragging(); ok {
		t.Fatal("cancel left controller dragging")
	}
	if _, ok := ctrl.Move(overInProgress); ok {
		t.Fatal("move while idle should not report a target")
	}

	_ = ctrl.Start("a")
	if _, err := ctrl.DropOn(context.Background(), "archived"); !models.IsValidation(err) {
		t.Fatalf("invalid status: %v", err)
	}
	if _, ok := ctrl.Dragging(); !ok {
		t.Fatal("invalid status should keep the drag alive")
	}
}
