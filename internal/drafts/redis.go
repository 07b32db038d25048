package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// indexKey is a set of the dates that have a draft.
const indexKey = "dailysheet-drafts"

// RedisStore keeps drafts in Redis. Writers of the same date are serialised
// with a redislock.
type RedisStore struct {
	client  *redis.Client
	locker  *redislock.Client
	ttl     time.Duration
	lockTTL time.Duration
	now     func() time.Time
}

// NewRedisStore returns a store whose drafts expire after ttl. A zero ttl
// uses DefaultMaxAge.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultMaxAge
	}
	return &RedisStore{
		client:  client,
		locker:  redislock.New(client),
		ttl:     ttl,
		lockTTL: 5 * time.Second,
		now:     time.Now,
	}
}

// Connect dials addr and verifies the connection.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) lock(ctx context.Context, date string) (*redislock.Lock, error) {
	lock, err := s.locker.Obtain(ctx, "lock:"+Key(date), s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("draft for %s is being written: %w", date, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain draft lock: %w", err)
	}
	return lock, nil
}

func (s *RedisStore) Save(ctx context.Context, d Draft) error {
	lock, err := s.lock(ctx, d.Date)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	d.SavedAt = s.now()
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, Key(d.Date), data, s.ttl)
		pipe.SAdd(ctx, indexKey, d.Date)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, date string) (Draft, error) {
	val, err := s.client.Get(ctx, Key(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(val, &d); err != nil {
		return Draft{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, nil
}

func (s *RedisStore) Clear(ctx context.Context, date string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, Key(date))
		pipe.SRem(ctx, indexKey, date)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// List returns the dates with a live draft. Index entries whose draft has
// expired are dropped on the way.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	dates := make([]string, 0, len(members))
	for _, date := range members {
		n, err := s.client.Exists(ctx, Key(date)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, indexKey, date)
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	dates, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, date := range dates {
		d, err := s.Load(ctx, date)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if d.SavedAt.Before(cutoff) {
			if err := s.Clear(ctx, date); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
