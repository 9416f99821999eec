package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger builds entries and hands them to a Storage.
type Logger struct {
	storage           Storage
	now               func() time.Time
	tenantIDExtractor func(context.Context) (uuid.UUID, bool)
}

// Option configures Logger behavior during initialization.
type Option func(*Logger)

// WithTenantIDExtractor fills TenantID from the context when no WithTenant
// option is given.
func WithTenantIDExtractor(fn func(context.Context) (uuid.UUID, bool)) Option {
	return func(l *Logger) {
		l.tenantIDExtractor = fn
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates a new audit logger. Panics on nil storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records action. The actor and client info come from ctx unless
// overridden by options.
func (l *Logger) Log(ctx context.Context, action Action, opts ...EntryOption) error {
	entry := l.entryFromContext(ctx)
	entry.ID = uuid.New()
	entry.Action = action
	entry.CreatedAt = l.now().UTC()

	for _, opt := range opts {
		opt(&entry)
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, entry)
}

func (l *Logger) entryFromContext(ctx context.Context) Entry {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID == "" {
		actor = SystemActor
	}
	if actor.Type == "" {
		actor.Type = ActorUser
	}

	entry := Entry{ActorID: actor.ID, ActorType: actor.Type}
	entry.IPAddress, entry.UserAgent = ClientInfoFromContext(ctx)

	if l.tenantIDExtractor != nil {
		if id, ok := l.tenantIDExtractor(ctx); ok {
			entry.TenantID = id
		}
	}
	return entry
}
