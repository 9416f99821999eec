package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/httpserver"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/pkg/ratelimiter"
	"github.com/dmitrymomot/flagkit/svc/api"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
	"github.com/dmitrymomot/flagkit/svc/seed"
)

func newServeCmd(c *cli) *cobra.Command {
	var migrate, seedDefault bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if migrate {
					if a.pool == nil {
						return errPostgresRequired
					}
					if err := pg.Migrate(ctx, a.pool, c.cfg.Postgres, flagstore.Migrations(), c.logger); err != nil {
						return err
					}
				}
				if seedDefault {
					report, err := seed.New(a.tenants, a.flags, seed.WithLogger(c.logger)).Apply(ctx, seed.Default())
					if err != nil {
						return err
					}
					c.logger.InfoContext(ctx, "default fixture applied",
						logger.Group("seed",
							slog.Int("tenants", report.TenantsCreated),
							slog.Int("features", report.FeaturesCreated),
							slog.Int("flags", report.FlagsCreated),
						))
				}

				quotaStore := ratelimiter.NewMemoryStore()
				defer quotaStore.Close()

				opts := []api.Option{
					api.WithAuditReader(a.auditReader),
					api.WithTenantCache(a.tenantCache),
					api.WithQuotaLimiter(ratelimiter.NewQuotaLimiter(quotaStore)),
					api.WithMetrics(a.metrics),
					api.WithLogger(c.logger),
				}
				for name, check := range a.checks {
					opts = append(opts, api.WithHealthCheck(name, check))
				}

				srv := httpserver.NewFromConfig(c.cfg.HTTP, httpserver.WithLogger(c.logger))
				return srv.Run(ctx, api.New(a.flags, a.tenants, opts...).Router())
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	cmd.Flags().BoolVar(&seedDefault, "seed", false, "apply the built-in demo fixture before serving")
	return cmd
}
