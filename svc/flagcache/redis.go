package flagcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// holdMarker is stored under a feature-list key held by an invalidation.
var holdMarker = []byte("hold")

// putFlagScript mirrors flagEntry.accepts on the server.
// KEYS[1] key, ARGV[1] entry, ARGV[2] flag id, ARGV[3] version, ARGV[4] ttl ms.
var putFlagScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, e = pcall(cjson.decode, cur)
	if ok and type(e) == 'table' then
		if e.sealed then
			return 0
		end
		if type(e.flag) ~= 'table' then
			if e.deleted == ARGV[2] then
				return 0
			end
		elseif e.flag.id == ARGV[2] and tonumber(e.flag.version) >= tonumber(ARGV[3]) then
			return 0
		end
	end
end
if tonumber(ARGV[4]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// setFeaturesScript stores a page unless the key is held.
// KEYS[1] key, ARGV[1] page, ARGV[2] hold marker, ARGV[3] ttl ms.
var setFeaturesScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Redis caches JSON-encoded entries in Redis, shared by every instance of
// the service.
type Redis struct {
	client redis.UniversalClient
	opts   *options
}

var _ Cache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	if client == nil {
		panic("flagcache: redis client is required")
	}
	return &Redis{client: client, opts: newOptions(opts)}
}

func (r *Redis) GetFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, bool) {
	var e flagEntry
	key := FlagKey(tenantID, featureID, env)
	data, ok := r.get(ctx, key)
	ok = ok && r.decode(ctx, key, data, &e) && e.Flag != nil
	r.opts.metrics.CacheLookup("flag", ok)
	if !ok {
		return nil, false
	}
	return e.Flag, true
}

func (r *Redis) SetFlag(ctx context.Context, flag *feature.Flag) {
	key := FlagKey(flag.TenantID, flag.FeatureID, flag.Env)
	data, ok := r.encode(ctx, key, flagEntry{Flag: flag})
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	if err := r.client.SetNX(ctx, key, data, r.opts.ttl).Err(); err != nil {
		r.fail(ctx, "set", key, err)
	}
}

func (r *Redis) PutFlag(ctx context.Context, flag *feature.Flag) {
	key := FlagKey(flag.TenantID, flag.FeatureID, flag.Env)
	data, ok := r.encode(ctx, key, flagEntry{Flag: flag})
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	err := putFlagScript.Run(ctx, r.client, []string{key},
		data, flag.ID.String(), flag.Version, r.opts.ttl.Milliseconds()).Err()
	if err != nil {
		r.fail(ctx, "put", key, err)
	}
}

func (r *Redis) DeleteFlag(ctx context.Context, flag *feature.Flag) {
	key := FlagKey(flag.TenantID, flag.FeatureID, flag.Env)
	if data, ok := r.encode(ctx, key, flagEntry{Deleted: flag.ID}); ok {
		r.set(ctx, key, data, r.opts.ttl)
	}
}

func (r *Redis) InvalidateFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) {
	key := FlagKey(tenantID, featureID, env)
	if data, ok := r.encode(ctx, key, flagEntry{Sealed: true}); ok {
		r.set(ctx, key, data, r.opts.ttl)
	}
}

func (r *Redis) GetFeatures(ctx context.Context, tenantID uuid.UUID) (*FeaturePage, bool) {
	var page FeaturePage
	key := FeaturesKey(tenantID)
	data, ok := r.get(ctx, key)
	ok = ok && !bytes.Equal(data, holdMarker) && r.decode(ctx, key, data, &page)
	r.opts.metrics.CacheLookup("features", ok)
	if !ok {
		return nil, false
	}
	return &page, true
}

func (r *Redis) SetFeatures(ctx context.Context, tenantID uuid.UUID, page *FeaturePage) {
	key := FeaturesKey(tenantID)
	data, ok := r.encode(ctx, key, page)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	err := setFeaturesScript.Run(ctx, r.client, []string{key},
		data, holdMarker, r.opts.ttl.Milliseconds()).Err()
	if err != nil {
		r.fail(ctx, "set", key, err)
	}
}

func (r *Redis) InvalidateFeatures(ctx context.Context, tenantID uuid.UUID) {
	key := FeaturesKey(tenantID)
	if r.opts.hold <= 0 {
		r.del(ctx, key)
		return
	}
	r.set(ctx, key, holdMarker, r.opts.hold)
}

// Clear deletes every flag and feature-list entry. It is meant for tests
// and operational resets, not the request path.
func (r *Redis) Clear(ctx context.Context) error {
	for _, pattern := range []string{"flag:*", "features:*"} {
		iter := r.client.Scan(ctx, 0, pattern, 500).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 500 {
				if err := r.client.Del(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Redis) get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.fail(ctx, "get", key, err)
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) decode(ctx context.Context, key string, data []byte, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		r.fail(ctx, "decode", key, err)
		return false
	}
	return true
}

func (r *Redis) encode(ctx context.Context, key string, v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		r.fail(ctx, "encode", key, err)
		return nil, false
	}
	return data, true
}

func (r *Redis) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.fail(ctx, "set", key, err)
	}
}

func (r *Redis) del(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.fail(ctx, "del", key, err)
	}
}

func (r *Redis) fail(ctx context.Context, op, key string, err error) {
	r.opts.metrics.CacheError(op)
	r.opts.logger.WarnContext(ctx, "cache operation failed",
		logger.CacheKey(key), logger.Error(err), "op", op)
}
