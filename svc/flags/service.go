package flags

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/metrics"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

// AuditLogger records changes. *audit.Logger implements it.
type AuditLogger interface {
	Log(ctx context.Context, action audit.Action, opts ...audit.EntryOption) error
}

// Service implements evaluation, feature and flag management, and promotion.
type Service struct {
	store     flagstore.FeatureStore
	cache     flagcache.Cache
	audit     AuditLogger
	evaluator *feature.Evaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() uuid.UUID
}

// Option configures the Service.
type Option func(*Service)

// WithCache sets the flag cache. Without it every read goes to the store.
func WithCache(c flagcache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithAuditLogger enables audit entries for every write.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithEvaluator(e *feature.Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service. Panics on nil store.
func NewService(store flagstore.FeatureStore, opts ...Option) *Service {
	if store == nil {
		panic("flags: store cannot be nil")
	}
	s := &Service{
		store:     store,
		cache:     flagcache.NoOp{},
		evaluator: feature.NewEvaluator(),
		logger:    logger.Discard(),
		now:       time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("flags"))
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// record writes an audit entry. before and after may be nil.
func (s *Service) record(ctx context.Context, action audit.Action, tenantID uuid.UUID, entity audit.EntityType, id uuid.UUID, before, after any) {
	if s.audit == nil {
		return
	}
	opts := []audit.EntryOption{audit.WithTenant(tenantID), audit.WithEntity(entity, id)}
	if before != nil {
		opts = append(opts, audit.WithBefore(before))
	}
	if after != nil {
		opts = append(opts, audit.WithAfter(after))
	}
	if err := s.audit.Log(ctx, action, opts...); err != nil {
		s.logger.ErrorContext(ctx, "failed to write audit entry",
			logger.TenantID(tenantID), slog.String("entity", string(entity)), logger.Error(err))
	}
}

// loadFlag reads a flag through the cache and fills it on a miss. The fill
// loses to any entry a concurrent write stored in the meantime.
func (s *Service) loadFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error) {
	if fl, ok := s.cache.GetFlag(ctx, tenantID, featureID, env); ok {
		return fl, nil
	}
	fl, err := s.store.FindFlag(ctx, tenantID, featureID, env)
	if err != nil {
		return nil, storeError(err)
	}
	s.cache.SetFlag(ctx, fl)
	return fl, nil
}
