package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of change recorded.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ActorType distinguishes human callers from automated ones.
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

// EntityType names the kind of record an entry refers to.
type EntityType string

const (
	EntityTenant      EntityType = "Tenant"
	EntityFeature     EntityType = "Feature"
	EntityFeatureFlag EntityType = "FeatureFlag"
)

// Entry is a single audit log record.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenantId"`
	ActorID     string          `json:"actorId"`
	ActorType   ActorType       `json:"actorType"`
	Action      Action          `json:"action"`
	EntityType  EntityType      `json:"entityType"`
	EntityID    uuid.UUID       `json:"entityId"`
	BeforeState json.RawMessage `json:"beforeState,omitempty"`
	AfterState  json.RawMessage `json:"afterState,omitempty"`
	IPAddress   string          `json:"ipAddress,omitempty"`
	UserAgent   string          `json:"userAgent,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Validate checks that the entry identifies what happened and to what.
func (e *Entry) Validate() error {
	switch {
	case e.TenantID == uuid.Nil:
		return errors.Join(ErrEntryValidation, errors.New("tenant id is required"))
	case !e.Action.Valid():
		return errors.Join(ErrEntryValidation, fmt.Errorf("unknown action %q", e.Action))
	case e.EntityType == "":
		return errors.Join(ErrEntryValidation, errors.New("entity type is required"))
	case e.EntityID == uuid.Nil:
		return errors.Join(ErrEntryValidation, errors.New("entity id is required"))
	}
	return nil
}

// EntryOption applies configuration to an Entry during Log.
type EntryOption func(*Entry)

func WithTenant(id uuid.UUID) EntryOption {
	return func(e *Entry) {
		e.TenantID = id
	}
}

func WithEntity(entityType EntityType, id uuid.UUID) EntryOption {
	return func(e *Entry) {
		e.EntityType = entityType
		e.EntityID = id
	}
}

// WithBefore stores the JSON snapshot of v as the state before the change.
func WithBefore(v any) EntryOption {
	return func(e *Entry) {
		e.BeforeState = snapshot(v)
	}
}

// WithAfter stores the JSON snapshot of v as the state after the change.
func WithAfter(v any) EntryOption {
	return func(e *Entry) {
		e.AfterState = snapshot(v)
	}
}

// WithActor overrides the actor taken from the context.
func WithActor(actor Actor) EntryOption {
	return func(e *Entry) {
		e.ActorID = actor.ID
		e.ActorType = actor.Type
	}
}

// snapshot never fails: values that cannot be encoded are recorded as an
// error object so the entry itself is still written.
func snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"snapshotError": err.Error()})
	}
	return b
}

// Criteria filters entries of one tenant. Zero-valued fields do not filter.
type Criteria struct {
	TenantID   uuid.UUID
	Action     Action
	EntityType EntityType
	EntityID   uuid.UUID
	ActorID    string
	Page       int
	Limit      int
}

// Matches reports whether e satisfies every set filter.
func (c Criteria) Matches(e Entry) bool {
	return e.TenantID == c.TenantID &&
		(c.Action == "" || e.Action == c.Action) &&
		(c.EntityType == "" || e.EntityType == c.EntityType) &&
		(c.EntityID == uuid.Nil || e.EntityID == c.EntityID) &&
		(c.ActorID == "" || e.ActorID == c.ActorID)
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize applies paging defaults: page 1, limit 20, limit at most 100.
func (c Criteria) Normalize() Criteria {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.Limit < 1 {
		c.Limit = DefaultLimit
	}
	c.Limit = min(c.Limit, MaxLimit)
	return c
}

// Offset returns the number of entries to skip.
func (c Criteria) Offset() int {
	return (c.Page - 1) * c.Limit
}
