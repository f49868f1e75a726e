package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

func (a *app) tokenCmd() *cobra.Command {
	var (
		name   string
		role   string
		ttl    time.Duration
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Register a profile and print a bearer token for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath != "" {
				a.cfg.Database.Path = dbPath
			}

			store, err := sqlite.Open(a.cfg.Database.Path, a.logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			profile, err := store.UpsertProfile(cmd.Context(), models.Profile{ID: args[0], FullName: name, Role: models.Role(role)})
			if err != nil {
				return err
			}
			tok, err := auth.Mint(a.cfg.Auth.JWTSecret, profile.ID, profile.FullName, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name of the profile")
	cmd.Flags().StringVar(&role, "role", string(models.RoleMember), "role of the profile (project_manager, member)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file")
	return cmd
}
