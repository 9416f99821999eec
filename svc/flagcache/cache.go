// Package flagcache is the read-through cache in front of flagstore.
//
// Two kinds of entries exist: a single flag under
// flag:{tenantID}:{featureID}:{env}, and the first page of a tenant's feature
// list under features:{tenantID}. Entries expire after DefaultTTL. Lookups
// never fail: backend errors are logged and reported as a miss, so a broken
// cache only costs latency.
//
// Writers and readers race on the same keys, so a flag key is never simply
// deleted. Read paths fill a key only when it holds nothing (SetFlag). Write
// paths store the committed flag (PutFlag), which never replaces a newer
// version of the same flag. Deletes leave a tombstone that keeps slower
// fills and puts of the deleted flag out until it expires. A feature-list
// invalidation holds the key empty for DefaultHold so that a page read
// before the write cannot be stored after it.
package flagcache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// DefaultTTL bounds the staleness of an entry whose invalidation was lost.
const DefaultTTL = 5 * time.Minute

// DefaultHold is how long an invalidated feature list refuses new pages.
const DefaultHold = 30 * time.Second

// FeaturePage is a cached feature listing with its total count.
type FeaturePage struct {
	Features []*feature.Feature `json:"data"`
	Total    int                `json:"total"`
}

// Cache is the contract shared by all implementations.
type Cache interface {
	GetFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, bool)
	// SetFlag stores a flag read from the store. It does nothing when the key
	// already holds a flag or a tombstone.
	SetFlag(ctx context.Context, flag *feature.Flag)
	// PutFlag stores a flag just committed to the store. It is ignored when
	// the key holds the same flag at a version at least as high, a tombstone
	// of the same flag, or a sealed tombstone.
	PutFlag(ctx context.Context, flag *feature.Flag)
	// DeleteFlag replaces the entry with a tombstone of the deleted flag.
	DeleteFlag(ctx context.Context, flag *feature.Flag)
	// InvalidateFlag seals the key: nothing is stored under it until the
	// tombstone expires. It is meant for keys whose feature is gone.
	InvalidateFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment)

	GetFeatures(ctx context.Context, tenantID uuid.UUID) (*FeaturePage, bool)
	// SetFeatures stores a page unless the key is held by a recent
	// invalidation.
	SetFeatures(ctx context.Context, tenantID uuid.UUID, page *FeaturePage)
	InvalidateFeatures(ctx context.Context, tenantID uuid.UUID)
}

// flagEntry is what a flag key holds: a live flag, or a tombstone when Flag
// is nil.
type flagEntry struct {
	Flag    *feature.Flag `json:"flag,omitempty"`
	Deleted uuid.UUID     `json:"deleted"`
	Sealed  bool          `json:"sealed,omitempty"`
}

// accepts reports whether a committed write of fl may replace e.
func (e flagEntry) accepts(fl *feature.Flag) bool {
	switch {
	case e.Sealed:
		return false
	case e.Flag == nil:
		return e.Deleted != fl.ID
	case e.Flag.ID != fl.ID:
		return true
	default:
		return e.Flag.Version < fl.Version
	}
}

// FlagKey returns the cache key of a flag.
func FlagKey(tenantID, featureID uuid.UUID, env feature.Environment) string {
	return fmt.Sprintf("flag:%s:%s:%s", tenantID, featureID, env)
}

// FeaturesKey returns the cache key of a tenant's feature list.
func FeaturesKey(tenantID uuid.UUID) string {
	return "features:" + tenantID.String()
}

func clonePage(p *FeaturePage) *FeaturePage {
	out := &FeaturePage{Total: p.Total, Features: make([]*feature.Feature, len(p.Features))}
	for i, f := range p.Features {
		cp := *f
		out.Features[i] = &cp
	}
	return out
}
