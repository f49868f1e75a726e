package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <project-id> <task-id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := a.client()

			me, err := c.Me(ctx)
			if err != nil {
				return err
			}
			sess := board.NewSession(c, c, nil, a.logger)
			defer sess.Close()
			store, err := sess.OpenProjectView(ctx, args[0])
			if err != nil {
				return err
			}

			drag := board.NewDragController(store, c, me, nil, a.logger)
			if err := drag.Start(args[1]); err != nil {
				return err
			}
			outcome, err := drag.DropOn(ctx, models.Status(args[2]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s\n", args[1], outcome)
			return nil
		},
	}
}
