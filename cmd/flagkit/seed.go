package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/svc/seed"
)

func newSeedCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create tenants, features and flags from a YAML fixture",
		Long: "seed creates whatever the fixture describes and does not exist yet. " +
			"Existing records are left untouched, so running it twice is safe. " +
			"Without --file the built-in demo fixture is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := seed.Default()
			if file != "" {
				var err error
				if doc, err = seed.LoadFile(file); err != nil {
					return err
				}
			}
			if c.cfg.Store == backendMemory {
				c.logger.Warn("seeding the in-memory store has no lasting effect")
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				report, err := seed.New(a.tenants, a.flags, seed.WithLogger(c.logger)).Apply(ctx, doc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a YAML fixture")
	return cmd
}
