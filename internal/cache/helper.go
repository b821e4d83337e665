package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"purpaws/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GetJSON loads key into dest. It returns (false, nil) on a miss or when Redis is not configured.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with ttl. A nil client is a no-op.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside reads key into dest, calling fetch to fill dest on a miss and caching the result.
// Cache errors never fail the call; fetch errors are returned as is and nothing is cached.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCatalog(ctx context.Context) {
	Invalidate(ctx, CatalogKey)
}

// ErrLockHeld is returned by AcquireLock when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

// AcquireLock takes a best-effort exclusive lock with SET NX. The returned release func only
// deletes the key if this caller still owns it. Without Redis the lock is always granted.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		// Compare-and-delete so an expired lock re-acquired by someone else is left alone.
		if err := releaseScript.Run(context.Background(), client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			middleware.Logger.Warn("failed to release lock", slog.String("key", key), slog.String("error", err.Error()))
		}
	}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RevokeToken denylists a token id until ttl elapses. A nil client is a no-op.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, DenylistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti has been denylisted.
func IsRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, DenylistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
