package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coder/websocket"

	"taskboard/internal/auth"
	"taskboard/internal/board"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenRegistersProfile(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", "cli-secret")
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := run(t, "token", "u1", "--name", "Paula", "--role", "project_manager", "--db", dbPath)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	store, err := sqlite.Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	authn, err := auth.New("cli-secret", store, 0)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	defer authn.Close()

	actor, err := authn.Resolve(context.Background(), strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actor.UserID != "u1" || actor.Name != "Paula" || !actor.Elevated() {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestTokenRejectsUnknownRole(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", "cli-secret")
	_, err := run(t, "token", "u1", "--role", "owner", "--db", filepath.Join(t.TempDir(), "cli.db"))
	if !models.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestServeRequiresSecret(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", "")
	_, err := run(t, "serve", "--db", filepath.Join(t.TempDir(), "cli.db"))
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("err = %v", err)
	}
}

func TestWatchRejectsUnknownStatus(t *testing.T) {
	var ve *models.ValidationError
	if _, err := run(t, "watch", "p1", "--status", "blocked"); !errors.As(err, &ve) || ve.Field != "status" {
		t.Fatalf("err = %v", err)
	}
}

func TestWatchEndsWhenStreamCloses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/p1/changes", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn.Close(websocket.StatusGoingAway, "restarting")
	})
	mux.HandleFunc("/api/projects/p1/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tasks":[{"id":"t1","project_id":"p1","title":"Ship","status":"todo","priority":"low"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Setenv("TASKBOARD_URL", srv.URL)
	t.Setenv("TASKBOARD_TOKEN", "tok")
	out, err := run(t, "watch", "p1")
	if !errors.Is(err, errStreamClosed) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "To Do (1)") {
		t.Fatalf("board not rendered before exit:\n%s", out)
	}
}

func TestRenderBoard(t *testing.T) {
	due, _ := models.ParseDate("2024-03-01")
	b := board.Project([]models.Task{
		{ID: "t1", Title: "Write docs", Status: models.StatusTodo, Priority: models.PriorityLow},
		{ID: "t2", Title: "Ship", Status: models.StatusInProgress, Priority: models.PriorityHigh,
			Assignee: &models.ProfileRef{FullName: "Max"}, DueDate: &due},
	}, board.ViewState{})

	out := new(bytes.Buffer)
	renderBoard(out, b)
	got := out.String()
	for _, want := range []string{
		"To Do (1)\n  [low] Write docs  t1\n",
		"In Progress (1)\n  [high] Ship @Max due 2024-03-01  t2\n",
		"Completed (0)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
