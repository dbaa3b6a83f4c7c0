package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// incrementScript faz, num único passo atômico no redis:
// zera o registro se o bloqueio venceu ou se a janela acabou (sem bloqueio),
// senão incrementa. Retorna {count, windowStartMs}.
//
// KEYS[1] = hash do contador (count, start), KEYS[2] = chave de bloqueio.
// ARGV[1] = agora (ms), ARGV[2] = janela (ms), ARGV[3] = ttl do hash (ms).
var incrementScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local start = tonumber(redis.call('HGET', KEYS[1], 'start') or '')
local fresh = (start == nil)
local blocked = redis.call('GET', KEYS[2])
if blocked then
  if tonumber(blocked) <= now then
    redis.call('DEL', KEYS[2])
    fresh = true
  end
elseif not fresh and now - start >= window then
  fresh = true
end
if fresh then
  redis.call('HSET', KEYS[1], 'count', '1', 'start', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  return {1, now}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, start}
`)

// blockScript grava o bloqueio e estica o ttl do contador para cobrir o
// bloqueio inteiro (o status continua mostrando a contagem durante o castigo).
//
// ARGV[1] = bloqueado até (ms), ARGV[2] = ttl (ms).
var blockScript = redis.NewScript(`
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl >= 0 and ttl < tonumber(ARGV[2]) then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisStore é o CounterStore compartilhado entre todas as instâncias.
//
// O relógio usado nas regras de janela/bloqueio é o da aplicação (passado ao
// script), o TTL do redis serve só para coletar registros abandonados.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    domain.Clock
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(c domain.Clock) RedisOption {
	return func(s *RedisStore) { s.now = c }
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*RedisStore)(nil)

// As duas chaves de um registro levam a mesma hash tag ({key}): os scripts
// tocam ambas e, em redis cluster, precisam cair no mesmo slot.
func (s *RedisStore) counterKey(key string) string { return s.prefix + ":{" + key + "}:counter" }
func (s *RedisStore) blockKey(key string) string   { return s.prefix + ":{" + key + "}:block" }

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (domain.WindowCount, error) {
	now := s.now.Now()
	ttl := window + domain.RecordSlack

	res, err := incrementScript.Run(ctx, s.rdb,
		[]string{s.counterKey(key), s.blockKey(key)},
		now.UnixMilli(), window.Milliseconds(), ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return domain.WindowCount{}, fmt.Errorf("redis increment %q: %w", key, err)
	}
	if len(res) != 2 {
		return domain.WindowCount{}, fmt.Errorf("redis increment %q: unexpected reply %v", key, res)
	}
	return domain.WindowCount{Count: res[0], WindowStartedAt: time.UnixMilli(res[1])}, nil
}

func (s *RedisStore) GetBlock(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, s.blockKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get block %q: %w", key, err)
	}

	until, err := parseMillis(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get block %q: %w", key, err)
	}
	if !s.now.Now().Before(until) {
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (s *RedisStore) SetBlock(ctx context.Context, key string, until time.Time) error {
	ttl := until.Sub(s.now.Now())
	if ttl < 0 {
		ttl = 0
	}
	ttl += domain.RecordSlack

	err := blockScript.Run(ctx, s.rdb,
		[]string{s.counterKey(key), s.blockKey(key)},
		until.UnixMilli(), ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set block %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.counterKey(key), s.blockKey(key)).Err(); err != nil {
		return fmt.Errorf("redis reset %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Status(ctx context.Context, key string) (domain.CounterRecord, error) {
	pipe := s.rdb.Pipeline()
	fields := pipe.HGetAll(ctx, s.counterKey(key))
	block := pipe.Get(ctx, s.blockKey(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.CounterRecord{}, fmt.Errorf("redis status %q: %w", key, err)
	}

	var rec domain.CounterRecord
	vals := fields.Val()
	if v, ok := vals["count"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.CounterRecord{}, fmt.Errorf("redis status %q: bad count: %w", key, err)
		}
		rec.Count = n
	}
	if v, ok := vals["start"]; ok {
		start, err := parseMillis(v)
		if err != nil {
			return domain.CounterRecord{}, fmt.Errorf("redis status %q: bad start: %w", key, err)
		}
		rec.WindowStartedAt = start
	}
	if raw, err := block.Result(); err == nil {
		until, err := parseMillis(raw)
		if err != nil {
			return domain.CounterRecord{}, fmt.Errorf("redis status %q: bad block: %w", key, err)
		}
		rec.BlockedUntil = until
	}
	return rec, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
