package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const cacheKeyPrefix = "cache"

// CacheSpec declares how responses of one endpoint are cached. Handlers
// register a spec per read endpoint; the key shape is derived from it so the
// same inputs always map to the same key.
type CacheSpec struct {
	// Module groups related endpoints so they can be invalidated together,
	// e.g. "audit" or "settings".
	Module string
	// Endpoint identifies the operation within the module, e.g. "list".
	Endpoint string
	// IncludeUserID scopes entries to the requesting user.
	IncludeUserID bool
	// IncludeQuery folds the request query string into the key.
	IncludeQuery bool
	// TTL is the entry lifetime. Zero (or negative) disables caching for the
	// endpoint entirely: reads and writes both skip the cache.
	TTL time.Duration
}

// Key derives the cache key for one request. The query string is hashed so
// arbitrary filter combinations produce bounded key lengths.
func (s CacheSpec) Key(userID, rawQuery string) string {
	var b strings.Builder
	b.WriteString(cacheKeyPrefix)
	b.WriteByte(':')
	b.WriteString(s.Module)
	b.WriteByte(':')
	b.WriteString(s.Endpoint)
	if s.IncludeUserID {
		b.WriteString(":u:")
		b.WriteString(userID)
	}
	if s.IncludeQuery {
		sum := sha256.Sum256([]byte(rawQuery))
		b.WriteString(":q:")
		b.WriteString(hex.EncodeToString(sum[:8]))
	}
	return b.String()
}

// ModulePattern returns the wildcard pattern covering every entry the module
// has written, for invalidation after writes.
func ModulePattern(module string) string {
	return fmt.Sprintf("%s:%s:*", cacheKeyPrefix, module)
}

// ResponseCacheServiceOptions contains dependencies for the response cache service.
type ResponseCacheServiceOptions struct {
	Logger *slog.Logger
	Cache  CacheRepository
}

// ResponseCacheService wraps read operations with a cache-aside layer. Cache
// failures degrade to a miss rather than failing the request.
type ResponseCacheService struct {
	logger *slog.Logger
	cache  CacheRepository
}

// NewResponseCacheService creates a new response cache service with the given options.
func NewResponseCacheService(opts ResponseCacheServiceOptions) (*ResponseCacheService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache repository is required")
	}
	return &ResponseCacheService{
		logger: opts.Logger,
		cache:  opts.Cache,
	}, nil
}

// MustNewResponseCacheService creates a new response cache service and panics on error.
func MustNewResponseCacheService(opts ResponseCacheServiceOptions) *ResponseCacheService {
	svc, err := NewResponseCacheService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// GetOrCompute returns the cached payload for key when present, otherwise
// runs compute, stores its result under key with the spec's TTL, and returns
// it. The second return value reports a cache hit. A spec with TTL <= 0
// bypasses the cache on both sides and always computes. Errors from the cache
// backend are logged and treated as misses; errors from compute are returned
// unchanged and nothing is stored.
func (s *ResponseCacheService) GetOrCompute(ctx context.Context, spec CacheSpec, userID, rawQuery string, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if spec.TTL <= 0 {
		payload, err := compute(ctx)
		return payload, false, err
	}

	key := spec.Key(userID, rawQuery)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
	} else if cached != nil {
		return cached, true, nil
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, key, payload, spec.TTL); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return payload, false, nil
}

// Invalidate removes cached entries. Each argument may be an exact key or a
// pattern ending in "*". Backend failures are logged, not returned, since a
// stale entry is bounded by its TTL.
func (s *ResponseCacheService) Invalidate(ctx context.Context, keysOrPatterns ...string) {
	for _, kp := range keysOrPatterns {
		if strings.HasSuffix(kp, "*") {
			n, err := s.cache.DeleteByPattern(ctx, kp)
			if err != nil {
				s.logger.Warn("cache invalidation failed", "pattern", kp, "error", err)
				continue
			}
			s.logger.Debug("cache invalidated", "pattern", kp, "removed", n)
			continue
		}
		if _, err := s.cache.Delete(ctx, kp); err != nil {
			s.logger.Warn("cache invalidation failed", "key", kp, "error", err)
		}
	}
}

// InvalidateModule removes every cached entry a module has written.
func (s *ResponseCacheService) InvalidateModule(ctx context.Context, module string) {
	s.Invalidate(ctx, ModulePattern(module))
}
