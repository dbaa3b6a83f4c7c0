package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

var defaultRegistry = NewRegistry(domain.DefaultPolicySet())

// CounterKey monta a chave do contador: identidade + ":" + classe.
func CounterKey(id domain.Identity, class domain.ClassKey) string {
	return string(id) + ":" + string(class)
}

// Service concentra a regra do limitador: janela fixa com "castigo"
// (bloqueio) quando a cota estoura.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna um Verdict.
// A escolha entre redis e memória fica no Store (ver infra.FailoverStore).
type Service struct {
	Registry *Registry
	Store    domain.CounterStore
	// Bypass libera tudo. Só para desenvolvimento; a config recusa em produção.
	Bypass bool
	Clock  domain.Clock
	Logger *slog.Logger
}

func (s Service) registry() *Registry {
	if s.Registry == nil {
		return defaultRegistry
	}
	return s.Registry
}

func (s Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Check decide se a requisição (identidade, classe, tier) pode seguir.
// Nunca devolve erro: falha de store vira "permitido" (fail-open) com log.
func (s Service) Check(ctx context.Context, id domain.Identity, class domain.ClassKey, tier domain.Tier) domain.Verdict {
	policy := s.registry().Resolve(class, tier)
	now := s.Clock.Now()

	if s.Bypass || s.Store == nil {
		return allowed(policy, policy.MaxRequests, now.Add(policy.Window))
	}

	key := CounterKey(id, class)

	// bloqueio domina a janela: não encosta no contador
	until, blocked, err := s.Store.GetBlock(ctx, key)
	if err != nil {
		return s.failOpen(policy, now, "get_block", key, err)
	}
	if blocked && now.Before(until) {
		return domain.Verdict{
			Allowed:    false,
			Limit:      policy.MaxRequests,
			Remaining:  0,
			ResetAt:    until,
			RetryAfter: until.Sub(now),
		}
	}

	wc, err := s.Store.Increment(ctx, key, policy.Window)
	if err != nil {
		return s.failOpen(policy, now, "increment", key, err)
	}
	if wc.Count <= int64(policy.MaxRequests) {
		return allowed(policy, policy.MaxRequests-int(wc.Count), wc.WindowStartedAt.Add(policy.Window))
	}

	// estourou (primeira vez ou corrida com outro bloqueio): nega e (re)bloqueia
	until = now.Add(policy.Block)
	if err := s.Store.SetBlock(ctx, key, until); err != nil {
		s.logger().Warn("rate limit block not persisted", "key", key, "error", err)
	}
	s.logger().Debug("rate limit exceeded",
		"key", key,
		"count", wc.Count,
		"limit", policy.MaxRequests,
		"block", policy.Block,
	)
	return domain.Verdict{
		Allowed:    false,
		Limit:      policy.MaxRequests,
		Remaining:  0,
		ResetAt:    until,
		RetryAfter: policy.Block,
	}
}

// Decide identifica o cliente a partir dos atributos e chama Check.
func (s Service) Decide(ctx context.Context, attrs domain.RequestAttributes, class domain.ClassKey) (domain.Identity, domain.Verdict) {
	id := Identify(attrs)
	return id, s.Check(ctx, id, class, attrs.Tier)
}

func (s Service) failOpen(policy domain.Policy, now time.Time, op, key string, err error) domain.Verdict {
	s.logger().Error("rate limit store failed, allowing request",
		"op", op,
		"key", key,
		"error", err,
	)
	return allowed(policy, policy.MaxRequests, now.Add(policy.Window))
}

func allowed(policy domain.Policy, remaining int, resetAt time.Time) domain.Verdict {
	return domain.Verdict{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
