// Package cache provides result caching for computed analytics. Redis is
// the primary backend; when disabled or unreachable the service degrades to
// an in-process TTL cache so analytics requests never fail on cache errors.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"trading-journal/config"
	"trading-journal/internal/logging"
)

// ErrMiss is returned when a key is absent from the cache.
var ErrMiss = errors.New("cache miss")

// Key patterns for cached analytics payloads.
const (
	KeySnapshot = "user:%s:analytics:%s" // user ID, range fingerprint
)

// SnapshotKey builds the cache key for one user's analytics range.
func SnapshotKey(userID, rangeFingerprint string) string {
	return fmt.Sprintf(KeySnapshot, userID, rangeFingerprint)
}

// Service is a Redis-backed cache with failure counting and an in-memory
// fallback. When Redis trips the breaker, reads and writes go to the local
// TTL cache until Redis recovers.
type Service struct {
	client *redis.Client
	local  *gocache.Cache
	log    *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewService creates the cache service. A disabled Redis config yields a
// purely in-memory cache, which is valid for single-instance deployments.
func NewService(cfg config.RedisConfig) *Service {
	s := &Service{
		local:         gocache.New(5*time.Minute, 10*time.Minute),
		log:           logging.WithComponent("cache"),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	if !cfg.Enabled {
		s.log.Info("Redis disabled, using in-memory cache only")
		return s
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.Warn("Initial Redis connection failed, starting degraded", "error", err)
		return s
	}

	s.healthy = true
	s.lastCheck = time.Now()
	s.log.Info("Redis connected", "address", cfg.Address)
	return s
}

// redisAvailable reports whether Redis should be used for this operation,
// kicking off a background recovery ping when the breaker is open.
func (s *Service) redisAvailable() bool {
	if s.client == nil {
		return false
	}

	s.mu.RLock()
	healthy := s.healthy
	stale := !s.healthy && time.Since(s.lastCheck) >= s.checkInterval
	s.mu.RUnlock()

	if stale {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.client.Ping(ctx).Err(); err == nil {
				s.recordSuccess()
			} else {
				s.mu.Lock()
				s.lastCheck = time.Now()
				s.mu.Unlock()
			}
		}()
	}
	return healthy
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount++
	s.lastCheck = time.Now()
	if s.failureCount >= s.maxFailures && s.healthy {
		s.log.Warn("Redis marked unhealthy, falling back to in-memory cache",
			"failures", s.failureCount)
		s.healthy = false
	}
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.healthy {
		s.log.Info("Redis recovered")
	}
	s.healthy = true
	s.failureCount = 0
	s.lastCheck = time.Now()
}

// Get retrieves a cached payload. Returns ErrMiss when absent.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	if s.redisAvailable() {
		data, err := s.client.Get(ctx, key).Bytes()
		if err == nil {
			s.recordSuccess()
			return data, nil
		}
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		s.recordFailure()
		// Fall through to the local cache on Redis failure.
	}

	if v, ok := s.local.Get(key); ok {
		if data, ok := v.([]byte); ok {
			return data, nil
		}
	}
	return nil, ErrMiss
}

// Set stores a payload with a TTL in whichever backend is available. The
// local cache is always written so a Redis outage does not lose hot keys.
func (s *Service) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.local.Set(key, value, ttl)

	if !s.redisAvailable() {
		return
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.recordFailure()
	} else {
		s.recordSuccess()
	}
}

// Invalidate removes a user's cached analytics after journal writes.
func (s *Service) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		s.local.Delete(key)
	}
	if !s.redisAvailable() {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.recordFailure()
	}
}

// InvalidateUser drops every cached analytics payload for a user. Redis
// pattern deletes are done with SCAN to avoid blocking.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	s.local.Flush()

	if !s.redisAvailable() {
		return
	}
	pattern := fmt.Sprintf(KeySnapshot, userID, "*")
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.recordFailure()
		return
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			s.recordFailure()
		}
	}
}

// Close releases the Redis connection.
func (s *Service) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}
