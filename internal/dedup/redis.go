package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"budgetbuddy/internal/notify"
)

const defaultIndexKey = "budgetbuddy:dedup:index"

// Redis stores one string key per notification holding the send time in
// unix milliseconds, plus a sorted set indexing keys by that time so purges
// do not have to scan the keyspace.
type Redis struct {
	client   redis.UniversalClient
	indexKey string
}

var _ notify.DedupStore = (*Redis)(nil)

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, indexKey: defaultIndexKey}
}

// DialRedis connects to addr, accepting either a redis:// URL or host:port.
func DialRedis(ctx context.Context, addr string) (*Redis, error) {
	opt, err := parseRedisAddr(addr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(client), nil
}

func parseRedisAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		addr = "redis://" + addr
	}
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis address: %w", err)
	}
	return opt, nil
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MarkSent writes the key and its index entry in one transaction so a key is
// never left outside the purge index. Both writes keep an existing value.
func (r *Redis) MarkSent(ctx context.Context, key string, sentAt time.Time) error {
	ms := sentAt.UnixMilli()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, strconv.FormatInt(ms, 10), 0)
		pipe.ZAddNX(ctx, r.indexKey, redis.Z{Score: float64(ms), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mark sent: %w", err)
	}
	return nil
}

func (r *Redis) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: exclusiveScore(cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis range index: %w", err)
	}
	return r.remove(ctx, keys)
}

func (r *Redis) Reset(ctx context.Context, prefix string) (int, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		if iter.Val() == r.indexKey {
			continue
		}
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return r.remove(ctx, keys)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) remove(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, r.indexKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete: %w", err)
	}
	return int(del.Val()), nil
}

// exclusiveScore renders "(ms" so that an entry sent exactly at cutoff is
// kept.
func exclusiveScore(cutoff time.Time) string {
	return "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
