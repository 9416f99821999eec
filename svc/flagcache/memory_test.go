package flagcache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/metrics"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testFlag() *feature.Flag {
	return &feature.Flag{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		FeatureID:    uuid.New(),
		Env:          feature.EnvProd,
		Enabled:      true,
		StrategyType: feature.StrategyUserTargeting,
		StrategyConfig: feature.UserTargetingConfig{
			Rules: []feature.Rule{{Attribute: "country", Operator: feature.OperatorEquals, Values: []string{"US"}}},
		},
		Version: 3,
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	featureID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t,
		"flag:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222:STAGING",
		flagcache.FlagKey(tenantID, featureID, feature.EnvStaging))
	assert.Equal(t, "features:11111111-1111-1111-1111-111111111111", flagcache.FeaturesKey(tenantID))
}

// runCacheContract checks the behaviour every working cache shares.
func runCacheContract(t *testing.T, c flagcache.Cache) {
	ctx := context.Background()

	t.Run("flag round trip", func(t *testing.T) {
		fl := testFlag()
		_, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		assert.False(t, ok)

		c.SetFlag(ctx, fl)
		got, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		require.True(t, ok)
		assert.Equal(t, fl.ID, got.ID)
		assert.Equal(t, fl.Version, got.Version)
		assert.Equal(t, fl.StrategyConfig, got.StrategyConfig)

		_, ok = c.GetFlag(ctx, fl.TenantID, fl.FeatureID, feature.EnvDev)
		assert.False(t, ok)
		_, ok = c.GetFlag(ctx, uuid.New(), fl.FeatureID, fl.Env)
		assert.False(t, ok)

		c.InvalidateFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		_, ok = c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		assert.False(t, ok)
	})

	t.Run("fills never replace entries", func(t *testing.T) {
		fl := testFlag()
		newer := fl.Clone()
		newer.Version++
		newer.Enabled = false

		c.PutFlag(ctx, newer)
		c.SetFlag(ctx, fl)
		got, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		require.True(t, ok)
		assert.Equal(t, newer.Version, got.Version)
		assert.False(t, got.Enabled)
	})

	t.Run("puts keep the highest version", func(t *testing.T) {
		fl := testFlag()
		c.PutFlag(ctx, fl)

		older := fl.Clone()
		older.Version--
		c.PutFlag(ctx, older)
		got, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		require.True(t, ok)
		assert.Equal(t, fl.Version, got.Version)

		newer := fl.Clone()
		newer.Version++
		c.PutFlag(ctx, newer)
		got, ok = c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		require.True(t, ok)
		assert.Equal(t, newer.Version, got.Version)
	})

	t.Run("tombstones", func(t *testing.T) {
		fl := testFlag()
		c.PutFlag(ctx, fl)
		c.DeleteFlag(ctx, fl)

		_, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		assert.False(t, ok)

		// late writes of the deleted flag stay out
		c.SetFlag(ctx, fl)
		late := fl.Clone()
		late.Version++
		c.PutFlag(ctx, late)
		_, ok = c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		assert.False(t, ok)

		// a recreated flag has a new id
		recreated := fl.Clone()
		recreated.ID = uuid.New()
		recreated.Version = 1
		c.PutFlag(ctx, recreated)
		got, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		require.True(t, ok)
		assert.Equal(t, recreated.ID, got.ID)
	})

	t.Run("sealed keys", func(t *testing.T) {
		fl := testFlag()
		c.InvalidateFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		c.SetFlag(ctx, fl)
		c.PutFlag(ctx, fl)
		_, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
		assert.False(t, ok)
	})

	t.Run("held feature list", func(t *testing.T) {
		tenantID := uuid.New()
		c.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Total: 1})
		c.InvalidateFeatures(ctx, tenantID)

		c.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Total: 1})
		_, ok := c.GetFeatures(ctx, tenantID)
		assert.False(t, ok)
	})

	t.Run("features round trip", func(t *testing.T) {
		tenantID := uuid.New()
		page := &flagcache.FeaturePage{
			Features: []*feature.Feature{{ID: uuid.New(), TenantID: tenantID, Key: "dark_mode", Name: "Dark"}},
			Total:    7,
		}

		c.SetFeatures(ctx, tenantID, page)
		got, ok := c.GetFeatures(ctx, tenantID)
		require.True(t, ok)
		assert.Equal(t, 7, got.Total)
		require.Len(t, got.Features, 1)
		assert.Equal(t, "dark_mode", got.Features[0].Key)

		c.InvalidateFeatures(ctx, tenantID)
		_, ok = c.GetFeatures(ctx, tenantID)
		assert.False(t, ok)
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()
	runCacheContract(t, flagcache.NewMemory())
}

func TestMemory_TTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := flagcache.NewMemory(flagcache.WithClock(clock.Now))

	fl := testFlag()
	c.SetFlag(ctx, fl)

	clock.Advance(flagcache.DefaultTTL - time.Second)
	_, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
	assert.False(t, ok)
}

func TestMemory_HoldExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := flagcache.NewMemory(flagcache.WithClock(clock.Now), flagcache.WithHold(10*time.Second))

	tenantID := uuid.New()
	c.InvalidateFeatures(ctx, tenantID)
	c.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Total: 2})
	_, ok := c.GetFeatures(ctx, tenantID)
	require.False(t, ok)

	clock.Advance(10 * time.Second)
	c.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Total: 2})
	got, ok := c.GetFeatures(ctx, tenantID)
	require.True(t, ok)
	assert.Equal(t, 2, got.Total)

	c = flagcache.NewMemory(flagcache.WithHold(0))
	c.InvalidateFeatures(ctx, tenantID)
	c.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Total: 3})
	_, ok = c.GetFeatures(ctx, tenantID)
	assert.True(t, ok)
}

func TestMemory_IsolatesCallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := flagcache.NewMemory()
	fl := testFlag()
	c.SetFlag(ctx, fl)

	fl.Enabled = false
	fl.StrategyConfig.(feature.UserTargetingConfig).Rules[0].Values[0] = "CA"

	got, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
	require.True(t, ok)
	assert.True(t, got.Enabled)
	assert.Equal(t, "US", got.StrategyConfig.(feature.UserTargetingConfig).Rules[0].Values[0])
}

func TestMemory_ClearAndMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := metrics.New(nil)
	c := flagcache.NewMemory(flagcache.WithMetrics(m))

	fl := testFlag()
	c.SetFlag(ctx, fl)
	c.SetFeatures(ctx, fl.TenantID, &flagcache.FeaturePage{})
	assert.Equal(t, 2, c.Len())

	c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("flag", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("flag", "miss")))
}

func TestNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var c flagcache.Cache = flagcache.NoOp{}
	fl := testFlag()
	c.SetFlag(ctx, fl)
	_, ok := c.GetFlag(ctx, fl.TenantID, fl.FeatureID, fl.Env)
	assert.False(t, ok)

	c.SetFeatures(ctx, fl.TenantID, &flagcache.FeaturePage{})
	_, ok = c.GetFeatures(ctx, fl.TenantID)
	assert.False(t, ok)
}
