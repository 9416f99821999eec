package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

func newPromoteCmd(c *cli) *cobra.Command {
	var (
		tenantRef string
		in        flags.PromoteInput
		from, to  string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Copy flag settings of a tenant from one environment to another",
		Example: "  flagkit promote --tenant zebra --from STAGING --to PROD --dry-run\n" +
			"  flagkit promote --tenant zebra --from DEV --to STAGING --keys dark_mode,beta_features",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.SourceEnv = feature.Environment(from)
			in.TargetEnv = feature.Environment(to)

			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				t, err := a.tenants.GetByIdentifier(ctx, tenantRef)
				if err != nil {
					return err
				}
				ctx = tenant.WithTenant(ctx, t)

				result, err := a.flags.Promote(ctx, t.ID, in)
				if result != nil {
					if perr := printJSON(cmd.OutOrStdout(), result); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&tenantRef, "tenant", "t", "", "tenant ID or slug")
	cmd.Flags().StringVar(&from, "from", "", "source environment (DEV, STAGING or PROD)")
	cmd.Flags().StringVar(&to, "to", "", "target environment (DEV, STAGING or PROD)")
	cmd.Flags().BoolVar(&in.DryRun, "dry-run", false, "report the changes without applying them")
	cmd.Flags().StringSliceVar(&in.FeatureKeys, "keys", nil, "limit promotion to these feature keys")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
