package infra

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

// downStore falha em toda operação.
type downStore struct{ calls int }

func (s *downStore) Increment(context.Context, string, time.Duration) (domain.WindowCount, error) {
	s.calls++
	return domain.WindowCount{}, errDown
}

func (s *downStore) GetBlock(context.Context, string) (time.Time, bool, error) {
	s.calls++
	return time.Time{}, false, errDown
}

func (s *downStore) SetBlock(context.Context, string, time.Time) error {
	s.calls++
	return errDown
}

func (s *downStore) Reset(context.Context, string) error {
	s.calls++
	return errDown
}

func (s *downStore) Status(context.Context, string) (domain.CounterRecord, error) {
	s.calls++
	return domain.CounterRecord{}, errDown
}

// slowStore só responde quando o ctx encerra.
type slowStore struct{ downStore }

func (s *slowStore) Increment(ctx context.Context, _ string, _ time.Duration) (domain.WindowCount, error) {
	<-ctx.Done()
	return domain.WindowCount{}, ctx.Err()
}

func TestFailoverStore_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewLocalStore()
	fallback := NewLocalStore()
	s := NewFailoverStore(primary, fallback)
	ctx := context.Background()

	_, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, primary.Len())
	assert.Equal(t, 0, fallback.Len())
	assert.False(t, s.Degraded())
}

func TestFailoverStore_FallsBackOnErrorAndLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	primary := &downStore{}
	fallback := NewLocalStore()
	s := NewFailoverStore(primary, fallback, WithFailoverLogger(logger))
	ctx := context.Background()

	wc, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wc.Count)
	assert.Equal(t, 1, fallback.Len())
	assert.True(t, s.Degraded())
	assert.Equal(t, int64(1), s.Failures())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestFailoverStore_StaysOnFallbackDuringCooldown(t *testing.T) {
	clock := newFakeClock()
	primary := &downStore{}
	fallback := NewLocalStore(WithLocalClock(clock.Now))
	s := NewFailoverStore(primary, fallback,
		WithFailoverClock(clock.Now),
		WithFailoverCooldown(5*time.Second),
		WithFailoverLogger(slog.New(slog.DiscardHandler)),
	)
	ctx := context.Background()

	_, _, err := s.GetBlock(ctx, "k")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, primary.calls, "primary should be skipped while degraded")

	clock.Advance(5 * time.Second)
	wc, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls, "primary should be retried after cooldown")
	assert.Equal(t, int64(4), wc.Count)
}

func TestFailoverStore_TimesOutSlowPrimary(t *testing.T) {
	s := NewFailoverStore(&slowStore{}, NewLocalStore(),
		WithPrimaryTimeout(10*time.Millisecond),
		WithFailoverLogger(slog.New(slog.DiscardHandler)),
	)

	start := time.Now()
	wc, err := s.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wc.Count)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFailoverStore_ResetClearsBothStores(t *testing.T) {
	primary := NewLocalStore()
	fallback := NewLocalStore()
	s := NewFailoverStore(primary, fallback)
	ctx := context.Background()

	until := time.Now().Add(time.Hour)
	require.NoError(t, primary.SetBlock(ctx, "k", until))
	require.NoError(t, fallback.SetBlock(ctx, "k", until))

	require.NoError(t, s.Reset(ctx, "k"))

	assert.Equal(t, 0, primary.Len())
	assert.Equal(t, 0, fallback.Len())
}

func TestFailoverStore_CallerCancelDoesNotDegrade(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := newFakeClock()
	primary := NewRedisStore(rdb, WithRedisClock(clock.Now))
	fallback := NewLocalStore(WithLocalClock(clock.Now))
	s := NewFailoverStore(primary, fallback,
		WithFailoverClock(clock.Now),
		WithFailoverLogger(slog.New(slog.DiscardHandler)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wc, err := s.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wc.Count)
	assert.False(t, s.Degraded())
	assert.Zero(t, s.Failures())

	// a próxima chamada saudável continua indo para o redis
	wc, err = s.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), wc.Count)
	assert.Equal(t, "2", mr.HGet("ratelimit:{k}:counter", "count"))
	assert.Equal(t, 0, fallback.Len())
}
