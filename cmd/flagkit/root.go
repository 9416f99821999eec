package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// cliActor is recorded in the audit log for changes made from the command line.
var cliActor = audit.Actor{ID: "cli", Type: audit.ActorSystem}

var errPostgresRequired = errors.New("command requires STORE=postgres")

type cli struct {
	envFiles []string
	cfg      appConfig
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "flagkit",
		Short:         "Multi-tenant feature flag service",
		Long:          "flagkit serves the feature flag API and manages its database, fixtures and environment promotions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.envFiles)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			logger.SetAsDefault(log)
			c.cfg, c.logger = cfg, log
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "env files to load before reading the environment; missing files are skipped")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newSeedCmd(c),
		newPromoteCmd(c),
	)
	return root
}

// withApp wires the application, runs fn and releases everything afterwards.
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			c.logger.Error("failed to release resources", logger.Error(err))
		}
	}()
	return fn(audit.WithActorContext(ctx, cliActor), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
