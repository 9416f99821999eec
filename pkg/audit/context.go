package audit

import "context"

// Actor identifies who performed a change.
type Actor struct {
	ID   string
	Type ActorType
}

// SystemActor is used when no actor is attached to the context.
var SystemActor = Actor{ID: "system", Type: ActorSystem}

type (
	actorKey      struct{}
	clientInfoKey struct{}
)

type clientInfo struct {
	ip        string
	userAgent string
}

// WithActorContext attaches the acting user to ctx.
func WithActorContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached to ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// WithClientInfo attaches the caller's address and user agent to ctx.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

// ClientInfoFromContext returns the caller's address and user agent.
func ClientInfoFromContext(ctx context.Context) (ip, userAgent string) {
	info, _ := ctx.Value(clientInfoKey{}).(clientInfo)
	return info.ip, info.userAgent
}
