package flags_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

var errStoreDown = errors.New("store down")

// faultyStore fails selected operations. afterFindFlag, when set, runs
// after every flag read and before the result is returned.
type faultyStore struct {
	*flagstore.MemoryStore
	findByKeyErr  error
	createFlagErr error
	afterFindFlag func()
}

func (s *faultyStore) FindFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error) {
	fl, err := s.MemoryStore.FindFlag(ctx, tenantID, featureID, env)
	if s.afterFindFlag != nil {
		s.afterFindFlag()
	}
	return fl, err
}

// pauseFirstFlagRead blocks the first flag read after it hit the store. The
// returned channel is closed once that read is parked; calling release lets
// it continue.
func (s *faultyStore) pauseFirstFlagRead() (parked <-chan struct{}, release func()) {
	p := make(chan struct{})
	r := make(chan struct{})
	var paused atomic.Bool
	s.afterFindFlag = func() {
		if paused.CompareAndSwap(false, true) {
			close(p)
			<-r
		}
	}
	return p, func() { close(r) }
}

func (s *faultyStore) FindFeatureByKey(ctx context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error) {
	if s.findByKeyErr != nil {
		return nil, s.findByKeyErr
	}
	return s.MemoryStore.FindFeatureByKey(ctx, tenantID, key)
}

func (s *faultyStore) CreateFlag(ctx context.Context, f *feature.Flag) error {
	if s.createFlagErr != nil {
		return s.createFlagErr
	}
	return s.MemoryStore.CreateFlag(ctx, f)
}

type fixture struct {
	svc      *flags.Service
	store    *faultyStore
	cache    *flagcache.Memory
	audit    *audit.MemoryStorage
	tenantID uuid.UUID
}

func newFixture(t *testing.T, opts ...flags.Option) *fixture {
	t.Helper()

	store := &faultyStore{MemoryStore: flagstore.NewMemoryStore()}
	cache := flagcache.NewMemory()
	auditStorage := audit.NewMemoryStorage()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tn := &tenant.Tenant{
		ID:             uuid.New(),
		Name:           "Zebra",
		Slug:           "zebra",
		QuotaBurst:     tenant.DefaultQuotaBurst,
		QuotaSustained: tenant.DefaultQuotaSustained,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.CreateTenant(context.Background(), tn))

	opts = append([]flags.Option{
		flags.WithCache(cache),
		flags.WithAuditLogger(audit.NewLogger(auditStorage)),
		flags.WithEvaluator(feature.NewEvaluator(feature.WithAnonymousIDGenerator(func() string { return "anonymous" }))),
	}, opts...)

	return &fixture{
		svc:      flags.NewService(store, opts...),
		store:    store,
		cache:    cache,
		audit:    auditStorage,
		tenantID: tn.ID,
	}
}

func (f *fixture) feature(t *testing.T, key string) *feature.Feature {
	t.Helper()
	ft, err := f.svc.CreateFeature(context.Background(), f.tenantID, flags.CreateFeatureInput{Key: key, Name: key})
	require.NoError(t, err)
	return ft
}

func (f *fixture) flag(t *testing.T, featureID uuid.UUID, env feature.Environment, enabled bool, st feature.StrategyType, cfg string) *feature.Flag {
	t.Helper()
	var raw json.RawMessage
	if cfg != "" {
		raw = json.RawMessage(cfg)
	}
	fl, err := f.svc.CreateFlag(context.Background(), f.tenantID, featureID, flags.CreateFlagInput{
		Env:            env,
		Enabled:        enabled,
		StrategyType:   st,
		StrategyConfig: raw,
	})
	require.NoError(t, err)
	return fl
}

func (f *fixture) auditEntries(t *testing.T, entity audit.EntityType) []audit.Entry {
	t.Helper()
	entries, _, err := f.audit.Query(context.Background(), audit.Criteria{
		TenantID:   f.tenantID,
		EntityType: entity,
		Limit:      audit.MaxLimit,
	})
	require.NoError(t, err)
	return entries
}
