package application

import (
	"testing"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// counterStores roda o mesmo cenário contra os dois backends: os vereditos
// têm que ser idênticos em memória e no redis.
var counterStores = map[string]func(t *testing.T, clock *fakeClock) domain.CounterStore{
	"local": func(_ *testing.T, clock *fakeClock) domain.CounterStore {
		return infra.NewLocalStore(infra.WithLocalClock(clock.Now))
	},
	"redis": func(t *testing.T, clock *fakeClock) domain.CounterStore {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: 20})
		t.Cleanup(func() { _ = rdb.Close() })
		return infra.NewRedisStore(rdb, infra.WithRedisClock(clock.Now))
	},
}
