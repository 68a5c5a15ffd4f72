package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/richxcame/cdr-radar/pkg/redis"
)

// ReportCache stores reports under a key built by reportKey. A changed batch or
// policy yields a new key, so neither hits a stale entry.
type ReportCache interface {
	Get(ctx context.Context, key string) (*Report, bool, error)
	Set(ctx context.Context, key string, report *Report) error
}

// RedisReportCache keeps reports in Redis as JSON
type RedisReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisReportCache creates a cache writing keys as prefix:key
func NewRedisReportCache(client *redis.Client, prefix string, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReportCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

// Get returns the cached report for key
func (c *RedisReportCache) Get(ctx context.Context, key string) (*Report, bool, error) {
	raw, err := c.client.GetBytes(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, true, nil
}

// Set stores report under key
func (c *RedisReportCache) Set(ctx context.Context, key string, report *Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.SetWithExpiration(ctx, c.key(key), raw, c.ttl); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// reportKey scopes a batch digest to the policy that produced the report
func reportKey(policy Policy, digest string) string {
	return policy.Fingerprint() + ":" + digest
}
