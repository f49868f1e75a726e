package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/config"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	envPath    string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban task board service and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultFile, "YAML config file")
	flags.StringVar(&a.envPath, "env-file", ".env", "dotenv file loaded before the environment")
	flags.StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(a.serveCmd(), a.watchCmd(), a.moveCmd(), a.tokenCmd())
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.envPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.Client.BaseURL, a.cfg.Client.Token, a.cfg.Client.Timeout,
		client.WithMaxUpload(a.cfg.Storage.MaxUploadBytes()))
}
