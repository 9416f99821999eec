package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Store != backendPostgres {
				return errPostgresRequired
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return pg.Migrate(ctx, a.pool, c.cfg.Postgres, flagstore.Migrations(), c.logger)
			})
		},
	}
}
