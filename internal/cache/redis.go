package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tastyfund/backend/internal/models"
)

const (
	keyPrefix = "campaign:summary:"
	genPrefix = "campaign:summary:gen:"

	// genTTL only has to outlive a single summary read.
	genTTL = 24 * time.Hour
)

// setIfCurrent writes the summary only while the generation key still holds ARGV[1].
// A missing generation key counts as 0.
var setIfCurrent = redis.NewScript(`
local g = redis.call('GET', KEYS[1])
if (g or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Redis stores summaries as JSON with a TTL. Failures degrade to a cache miss.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Get(ctx context.Context, campaignID string) (models.FundingSummary, bool) {
	var s models.FundingSummary
	b, err := r.client.Get(ctx, keyPrefix+campaignID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("summary cache get", "campaign_id", campaignID, "err", err)
		}
		return s, false
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, false
	}
	return s, true
}

func (r *Redis) Generation(ctx context.Context, campaignID string) (int64, bool) {
	gen, err := r.client.Get(ctx, genPrefix+campaignID).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		slog.Warn("summary cache generation", "campaign_id", campaignID, "err", err)
		return 0, false
	}
	return gen, true
}

func (r *Redis) SetIfCurrent(ctx context.Context, campaignID string, gen int64, s models.FundingSummary) {
	if r.ttl <= 0 {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	keys := []string{genPrefix + campaignID, keyPrefix + campaignID}
	if err := setIfCurrent.Run(ctx, r.client, keys, gen, b, r.ttl.Milliseconds()).Err(); err != nil {
		slog.Warn("summary cache set", "campaign_id", campaignID, "err", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, campaignID string) {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genPrefix+campaignID)
		p.Expire(ctx, genPrefix+campaignID, genTTL)
		p.Del(ctx, keyPrefix+campaignID)
		return nil
	})
	if err != nil {
		slog.Warn("summary cache invalidate", "campaign_id", campaignID, "err", err)
	}
}
