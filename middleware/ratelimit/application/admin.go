package application

import (
	"context"
	"errors"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

var ErrNoStore = errors.New("counter store is required")

// AdminService expõe leitura (status) e escrita (reset) direto no
// CounterStore, sem passar pela decisão do Service. Quem pode chamar é
// problema do colaborador de autorização.
type AdminService struct {
	Registry *Registry
	Store    domain.CounterStore
	Clock    domain.Clock
}

// Status é leitura pura: não incrementa nem bloqueia nada.
func (a AdminService) Status(ctx context.Context, id domain.Identity, class domain.ClassKey, tier domain.Tier) (domain.Status, error) {
	if a.Store == nil {
		return domain.Status{}, ErrNoStore
	}
	reg := a.Registry
	if reg == nil {
		reg = defaultRegistry
	}
	policy := reg.Resolve(class, tier)

	rec, err := a.Store.Status(ctx, CounterKey(id, class))
	if err != nil {
		return domain.Status{}, err
	}

	now := a.Clock.Now()
	st := domain.Status{
		Identity:  id,
		Class:     class,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests,
		ResetAt:   now.Add(policy.Window),
	}

	switch {
	case rec.Blocked(now):
		st.Count = rec.Count
		st.Remaining = 0
		st.Blocked = true
		st.BlockedUntil = rec.BlockedUntil
		st.ResetAt = rec.BlockedUntil
	case !rec.BlockedUntil.IsZero():
		// bloqueio vencido: o próximo request começa do zero
	case rec.WindowStartedAt.IsZero() || now.Sub(rec.WindowStartedAt) >= policy.Window:
		// janela vencida
	default:
		st.Count = rec.Count
		st.Remaining = max(policy.MaxRequests-int(rec.Count), 0)
		st.ResetAt = rec.WindowStartedAt.Add(policy.Window)
	}
	return st, nil
}

// Reset zera contador e bloqueio da chave (desbloqueio manual).
func (a AdminService) Reset(ctx context.Context, id domain.Identity, class domain.ClassKey) error {
	if a.Store == nil {
		return ErrNoStore
	}
	return a.Store.Reset(ctx, CounterKey(id, class))
}
