package infra

import (
	"context"
	"sync"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

// LocalStore é o CounterStore em memória (por instância).
//
// Um único mutex protege o mapa inteiro; o read-modify-write de uma chave
// acontece sempre sob o lock, então nenhum incremento se perde.
// Em frota, os limites ficam mais frouxos que no redis: cada instância conta
// sozinha.
type LocalStore struct {
	mu           sync.Mutex
	entries      map[string]*localEntry
	cleanupEvery time.Duration
	now          domain.Clock
}

type localEntry struct {
	count        int64
	windowStart  time.Time
	window       time.Duration
	blockedUntil time.Time
}

// restart informa se o próximo incremento abre uma janela nova.
// Bloqueio ativo domina a janela; bloqueio vencido zera tudo.
func (e *localEntry) restart(now time.Time, window time.Duration) bool {
	if !e.blockedUntil.IsZero() {
		return !now.Before(e.blockedUntil)
	}
	return e.windowStart.IsZero() || now.Sub(e.windowStart) >= window
}

// idle informa se janela e bloqueio já venceram (pode ser varrido).
func (e *localEntry) idle(now time.Time) bool {
	if !e.blockedUntil.IsZero() && now.Before(e.blockedUntil) {
		return false
	}
	return e.windowStart.IsZero() || now.Sub(e.windowStart) >= e.window
}

type LocalOption func(*LocalStore)

func WithCleanupEvery(d time.Duration) LocalOption {
	return func(s *LocalStore) { s.cleanupEvery = d }
}

func WithLocalClock(c domain.Clock) LocalOption {
	return func(s *LocalStore) { s.now = c }
}

func NewLocalStore(opts ...LocalOption) *LocalStore {
	s := &LocalStore{
		entries:      make(map[string]*localEntry),
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*LocalStore)(nil)

func (s *LocalStore) Increment(_ context.Context, key string, window time.Duration) (domain.WindowCount, error) {
	now := s.now.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &localEntry{}
		s.entries[key] = ent
	}
	if ent.restart(now, window) {
		*ent = localEntry{count: 1, windowStart: now, window: window}
		return domain.WindowCount{Count: 1, WindowStartedAt: now}, nil
	}

	ent.count++
	ent.window = window
	return domain.WindowCount{Count: ent.count, WindowStartedAt: ent.windowStart}, nil
}

func (s *LocalStore) GetBlock(_ context.Context, key string) (time.Time, bool, error) {
	now := s.now.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.blockedUntil.IsZero() || !now.Before(ent.blockedUntil) {
		return time.Time{}, false, nil
	}
	return ent.blockedUntil, true, nil
}

func (s *LocalStore) SetBlock(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &localEntry{}
		s.entries[key] = ent
	}
	ent.blockedUntil = until
	return nil
}

func (s *LocalStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *LocalStore) Status(_ context.Context, key string) (domain.CounterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return domain.CounterRecord{}, nil
	}
	return domain.CounterRecord{
		Count:           ent.count,
		WindowStartedAt: ent.windowStart,
		BlockedUntil:    ent.blockedUntil,
	}, nil
}

// Len devolve quantas chaves estão em memória.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove registros cuja janela e bloqueio já venceram.
func (s *LocalStore) Cleanup() {
	now := s.now.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.idle(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que varre registros vencidos periodicamente.
// Pare cancelando o contexto.
func (s *LocalStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}
