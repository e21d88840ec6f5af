package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/vlanshift/pkg/util"
)

// DefaultRedisKey is the list that holds audit events.
const DefaultRedisKey = "vlanshift:audit"

// RedisLogger keeps audit events in a Redis list, oldest first.
type RedisLogger struct {
	client  *redis.Client
	key     string
	maxLen  int64
	timeout time.Duration
}

// RedisConfig configures a RedisLogger.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // defaults to DefaultRedisKey
	MaxLen   int64  // trims the list to the newest MaxLen events, 0 keeps all
}

// NewRedisLogger connects to Redis and checks it is reachable.
func NewRedisLogger(ctx context.Context, cfg RedisConfig) (*RedisLogger, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	l := &RedisLogger{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key:     key,
		maxLen:  cfg.MaxLen,
		timeout: 5 * time.Second,
	}
	if err := l.client.Ping(ctx).Err(); err != nil {
		l.client.Close()
		return nil, fmt.Errorf("connecting to audit redis %s: %w", cfg.Addr, err)
	}
	return l, nil
}

// Log appends the event and trims the list.
func (l *RedisLogger) Log(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.key, data)
	if l.maxLen > 0 {
		pipe.LTrim(ctx, l.key, -l.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing audit event to redis: %w", err)
	}
	return nil
}

// Query reads the whole list and filters it.
func (l *RedisLogger) Query(filter Filter) ([]*Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	vals, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading audit events from redis: %w", err)
	}

	events := []*Event{}
	for i, v := range vals {
		var event Event
		if err := json.Unmarshal([]byte(v), &event); err != nil {
			util.Warnf("audit: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if filter.Matches(&event) {
			events = append(events, &event)
		}
	}
	return filter.page(events), nil
}

// Close closes the Redis client.
func (l *RedisLogger) Close() error {
	return l.client.Close()
}
