package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

var errStreamClosed = errors.New("change stream closed")

func (a *app) watchCmd() *cobra.Command {
	var vs board.ViewState
	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Follow a project board and reprint it on every change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if vs.Status != "" && vs.Status != board.FilterAll && !models.Status(vs.Status).Valid() {
				return &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", vs.Status)}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := a.client()
			sess := board.NewSession(c, c, c, a.logger)
			defer sess.Close()
			store, err := sess.OpenProjectView(ctx, args[0])
			if err != nil {
				return err
			}

			renderBoard(a.out, board.Project(store.Snapshot(), vs))
			done := sess.ProjectDone()
			for {
				select {
				case <-ctx.Done():
					if errors.Is(ctx.Err(), context.Canceled) {
						return nil
					}
					return ctx.Err()
				case <-done:
					if ctx.Err() != nil {
						return nil
					}
					return errStreamClosed
				case <-store.Changes():
					renderBoard(a.out, board.Project(store.Snapshot(), vs))
				}
			}
		},
	}
	cmd.Flags().StringVar(&vs.Search, "search", "", "only show tasks whose title or description contains this text")
	cmd.Flags().StringVar(&vs.Status, "status", "", "only show one column (todo, in_progress, completed)")
	cmd.Flags().StringVar(&vs.Assignee, "assignee", "", "only show tasks of this user id, or \"unassigned\"")
	return cmd
}

func renderBoard(w io.Writer, b board.Board) {
	fmt.Fprintln(w, strings.Repeat("=", 40))
	for _, col := range []struct {
		title string
		tasks []models.Task
	}{
		{"To Do", b.Todo},
		{"In Progress", b.InProgress},
		{"Completed", b.Completed},
	} {
		fmt.Fprintf(w, "%s (%d)\n", col.title, len(col.tasks))
		for _, t := range col.tasks {
			line := fmt.Sprintf("  [%s] %s", t.Priority, t.Title)
			if t.Assignee != nil {
				line += " @" + t.Assignee.FullName
			}
			if t.DueDate != nil {
				line += " due " + t.DueDate.String()
			}
			fmt.Fprintln(w, line+"  "+t.ID)
		}
	}
}
