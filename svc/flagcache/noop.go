package flagcache

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// NoOp stores nothing. Every lookup is a miss.
type NoOp struct{}

var _ Cache = NoOp{}

func (NoOp) GetFlag(context.Context, uuid.UUID, uuid.UUID, feature.Environment) (*feature.Flag, bool) {
	return nil, false
}
func (NoOp) SetFlag(context.Context, *feature.Flag) {}
func (NoOp) PutFlag(context.Context, *feature.Flag) {}
func (NoOp) DeleteFlag(context.Context, *feature.Flag) {}
func (NoOp) InvalidateFlag(context.Context, uuid.UUID, uuid.UUID, feature.Environment) {}
func (NoOp) GetFeatures(context.Context, uuid.UUID) (*FeaturePage, bool) { return nil, false }
func (NoOp) SetFeatures(context.Context, uuid.UUID, *FeaturePage) {}
func (NoOp) InvalidateFeatures(context.Context, uuid.UUID) {}
