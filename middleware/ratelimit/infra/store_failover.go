package infra

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// FailoverStore decora um CounterStore primário (redis) com um fallback local.
//
// Toda operação no primário roda com timeout curto. Se falhar, a mesma
// operação é refeita no fallback e o store fica "degradado" por um cooldown:
// durante esse tempo tudo vai direto para o fallback, inclusive o resto da
// checagem em andamento. Erro do primário nunca sobe para quem chamou.
type FailoverStore struct {
	primary  domain.CounterStore
	fallback domain.CounterStore

	timeout  time.Duration
	cooldown time.Duration
	now      domain.Clock
	logger   *slog.Logger
	warn     *rate.Sometimes

	degradedUntil atomic.Int64 // unix nano
	failures      atomic.Int64
}

type FailoverOption func(*FailoverStore)

func WithPrimaryTimeout(d time.Duration) FailoverOption {
	return func(s *FailoverStore) { s.timeout = d }
}

func WithFailoverCooldown(d time.Duration) FailoverOption {
	return func(s *FailoverStore) { s.cooldown = d }
}

func WithFailoverClock(c domain.Clock) FailoverOption {
	return func(s *FailoverStore) { s.now = c }
}

func WithFailoverLogger(l *slog.Logger) FailoverOption {
	return func(s *FailoverStore) { s.logger = l }
}

// WithWarnInterval limita a frequência do log de "redis indisponível".
func WithWarnInterval(d time.Duration) FailoverOption {
	return func(s *FailoverStore) { s.warn = &rate.Sometimes{First: 1, Interval: d} }
}

func NewFailoverStore(primary, fallback domain.CounterStore, opts ...FailoverOption) *FailoverStore {
	s := &FailoverStore{
		primary:  primary,
		fallback: fallback,
		timeout:  250 * time.Millisecond,
		cooldown: 5 * time.Second,
		logger:   slog.Default(),
		warn:     &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*FailoverStore)(nil)

// Degraded informa se as operações estão indo direto para o fallback.
func (s *FailoverStore) Degraded() bool {
	return s.now.Now().UnixNano() < s.degradedUntil.Load()
}

// Failures devolve quantas operações do primário falharam desde o start.
func (s *FailoverStore) Failures() int64 { return s.failures.Load() }

func (s *FailoverStore) markFailed(op, key string, err error) {
	s.failures.Add(1)
	s.degradedUntil.Store(s.now.Now().Add(s.cooldown).UnixNano())
	s.warn.Do(func() {
		s.logger.Warn("shared counter store unavailable, using local fallback",
			"op", op,
			"key", key,
			"cooldown", s.cooldown,
			"error", err,
		)
	})
}

// run executa fn no primário (com timeout) e, se falhar, no fallback.
//
// O primário roda desligado do cancelamento do chamador: cliente que desiste
// da request não é queda do redis e não pode degradar a instância inteira.
func run[T any](s *FailoverStore, ctx context.Context, op, key string, fn func(context.Context, domain.CounterStore) (T, error)) (T, error) {
	if s.primary != nil && !s.Degraded() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		v, err := fn(pctx, s.primary)
		cancel()
		if err == nil {
			return v, nil
		}
		s.markFailed(op, key, err)
	}
	return fn(ctx, s.fallback)
}

type blockState struct {
	until   time.Time
	blocked bool
}

func (s *FailoverStore) Increment(ctx context.Context, key string, window time.Duration) (domain.WindowCount, error) {
	return run(s, ctx, "increment", key, func(ctx context.Context, st domain.CounterStore) (domain.WindowCount, error) {
		return st.Increment(ctx, key, window)
	})
}

func (s *FailoverStore) GetBlock(ctx context.Context, key string) (time.Time, bool, error) {
	b, err := run(s, ctx, "get_block", key, func(ctx context.Context, st domain.CounterStore) (blockState, error) {
		until, blocked, err := st.GetBlock(ctx, key)
		return blockState{until: until, blocked: blocked}, err
	})
	return b.until, b.blocked, err
}

func (s *FailoverStore) SetBlock(ctx context.Context, key string, until time.Time) error {
	_, err := run(s, ctx, "set_block", key, func(ctx context.Context, st domain.CounterStore) (struct{}, error) {
		return struct{}{}, st.SetBlock(ctx, key, until)
	})
	return err
}

// Reset limpa os dois stores: um bloqueio aplicado durante uma queda do
// primário continua vivo no fallback e voltaria na próxima degradação.
func (s *FailoverStore) Reset(ctx context.Context, key string) error {
	if err := s.fallback.Reset(ctx, key); err != nil {
		return err
	}
	_, err := run(s, ctx, "reset", key, func(ctx context.Context, st domain.CounterStore) (struct{}, error) {
		return struct{}{}, st.Reset(ctx, key)
	})
	return err
}

func (s *FailoverStore) Status(ctx context.Context, key string) (domain.CounterRecord, error) {
	return run(s, ctx, "status", key, func(ctx context.Context, st domain.CounterStore) (domain.CounterRecord, error) {
		return st.Status(ctx, key)
	})
}
