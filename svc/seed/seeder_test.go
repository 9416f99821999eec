package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/svc/flags"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
	"github.com/dmitrymomot/flagkit/svc/seed"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

func newSeeder() (*seed.Seeder, *tenants.Service, *flags.Service) {
	store := flagstore.NewMemoryStore()
	ts := tenants.NewService(store)
	fs := flags.NewService(store)
	return seed.New(ts, fs), ts, fs
}

func TestDefault(t *testing.T) {
	t.Parallel()

	doc := seed.Default()
	require.Len(t, doc.Tenants, 2)
	assert.Equal(t, "zebra", doc.Tenants[0].Slug)
	require.NotNil(t, doc.Tenants[0].QuotaBurst)
	assert.Equal(t, 200, *doc.Tenants[0].QuotaBurst)
	assert.Len(t, doc.Tenants[0].Features, 3)
	assert.Equal(t, "yms", doc.Tenants[1].Slug)
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		_, err := seed.Parse(strings.NewReader("tenants:\n  - name: A\n    colour: red\n"))
		require.ErrorIs(t, err, seed.ErrInvalidDocument)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		doc, err := seed.Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, doc.Tenants)
	})
}

func TestSeeder_Apply(t *testing.T) {
	t.Parallel()

	s, ts, fs := newSeeder()
	ctx := context.Background()

	report, err := s.Apply(ctx, seed.Default())
	require.NoError(t, err)
	assert.Equal(t, seed.Report{TenantsCreated: 2, FeaturesCreated: 4, FlagsCreated: 8}, report)

	again, err := s.Apply(ctx, seed.Default())
	require.NoError(t, err)
	assert.Equal(t, seed.Report{Existing: 14}, again)

	zebra, err := ts.GetBySlug(ctx, "zebra")
	require.NoError(t, err)
	assert.Equal(t, 2000, zebra.QuotaSustained)

	res, err := fs.Evaluate(ctx, zebra.ID, "beta_features", feature.EnvProd, feature.EvaluationContext{UserID: "user_vip_100"})
	require.NoError(t, err)
	assert.True(t, res.Enabled)
	assert.Equal(t, feature.ReasonTargetingMatch, res.Reason)

	res, err = fs.Evaluate(ctx, zebra.ID, "new_checkout_v2", feature.EnvDev, feature.EvaluationContext{UserID: "anyone"})
	require.NoError(t, err)
	assert.True(t, res.Enabled)

	res, err = fs.Evaluate(ctx, zebra.ID, "dark_mode", feature.EnvProd, feature.EvaluationContext{})
	require.NoError(t, err)
	assert.False(t, res.Enabled)
}

func TestSeeder_ApplyInvalidFlag(t *testing.T) {
	t.Parallel()

	s, _, _ := newSeeder()
	doc, err := seed.Parse(strings.NewReader(`
tenants:
  - name: Acme
    slug: acme
    features:
      - key: rollout
        name: Rollout
        flags:
          - env: PROD
            enabled: true
            strategyType: PERCENTAGE
            strategyConfig: {percentage: 150}
`))
	require.NoError(t, err)

	report, err := s.Apply(context.Background(), doc)
	require.ErrorIs(t, err, flags.ErrValidation)
	assert.Equal(t, seed.Report{TenantsCreated: 1, FeaturesCreated: 1}, report)
}
