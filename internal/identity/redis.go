package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

// Numbers travel as decimal strings; gt compares them without converting to
// Lua doubles, which lose precision above 2^53.
const luaHelpers = `
local function gt(a, b)
  if #a ~= #b then return #a > #b end
  return a > b
end
`

var putIfAbsentScript = redis.NewScript(luaHelpers + `
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  local cur = redis.call('GET', KEYS[2])
  if not cur or gt(ARGV[2], cur) then
    redis.call('SET', KEYS[2], ARGV[2])
  end
  return {1, ARGV[2]}
end
return {0, redis.call('HGET', KEYS[1], ARGV[1])}
`)

var raiseLastKeyScript = redis.NewScript(luaHelpers + `
local cur = redis.call('GET', KEYS[1])
if not cur or gt(ARGV[1], cur) then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// RedisStore keeps the identity cache in Redis so several loader hosts can
// share one cache. First-writer-wins is enforced server-side.
type RedisStore struct {
	client  redis.UniversalClient
	hashKey string
	lastKey string
}

// NewRedisStore pings the server and returns a store under prefix.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "pathgraph"
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, perrors.IdentityError(err, "identity cache redis unreachable")
	}
	return &RedisStore{
		client:  client,
		hashKey: prefix + ":identity",
		lastKey: prefix + ":last_surrogate_key",
	}, nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key CompositeKey) (uint64, bool, error) {
	raw, err := s.client.HGet(ctx, s.hashKey, key.encode()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, perrors.IdentityError(err, "identity cache read failed")
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, perrors.IdentityErrorf(err, "identity cache entry %s is corrupt", key)
	}
	return v, true, nil
}

// PutIfAbsent implements Store
func (s *RedisStore) PutIfAbsent(ctx context.Context, key CompositeKey, value uint64) (uint64, bool, error) {
	res, err := putIfAbsentScript.Run(ctx, s.client,
		[]string{s.hashKey, s.lastKey},
		key.encode(), strconv.FormatUint(value, 10)).Slice()
	if err != nil {
		return 0, false, perrors.IdentityError(err, "identity cache write failed")
	}
	if len(res) != 2 {
		return 0, false, perrors.IdentityErrorf(fmt.Errorf("got %d values", len(res)), "unexpected identity cache reply for %s", key)
	}

	inserted, _ := res[0].(int64)
	raw, _ := res[1].(string)
	stored, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, perrors.IdentityErrorf(err, "identity cache entry %s is corrupt", key)
	}
	return stored, inserted == 1, nil
}

// LastKey implements Store
func (s *RedisStore) LastKey(ctx context.Context) (uint64, error) {
	raw, err := s.client.Get(ctx, s.lastKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, perrors.IdentityError(err, "identity cache meta read failed")
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, perrors.IdentityErrorf(err, "identity cache meta record %q is corrupt", raw)
	}
	return v, nil
}

// SaveLastKey implements Store
func (s *RedisStore) SaveLastKey(ctx context.Context, value uint64) error {
	err := raiseLastKeyScript.Run(ctx, s.client, []string{s.lastKey}, strconv.FormatUint(value, 10)).Err()
	if err != nil {
		return perrors.IdentityError(err, "identity cache meta write failed")
	}
	return nil
}

// Stats implements Store
func (s *RedisStore) Stats(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	iter := s.client.HScan(ctx, s.hashKey, 0, "", 1000).Iterator()
	field := true
	for iter.Next(ctx) {
		// HSCAN yields field, value, field, value...
		if field {
			if key, ok := decodeKey(iter.Val()); ok {
				counts[key.Namespace]++
			}
		}
		field = !field
	}
	if err := iter.Err(); err != nil {
		return nil, perrors.IdentityError(err, "identity cache scan failed")
	}
	return counts, nil
}

// Close implements Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
