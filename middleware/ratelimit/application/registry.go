package application

import (
	"maps"
	"slices"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

// fallbackGeneral garante que nenhum endpoint fica sem proteção quando o
// PolicySet não traz "general".
var fallbackGeneral = domain.Policy{
	Class:       domain.ClassGeneral,
	MaxRequests: 100,
	Window:      time.Minute,
	Block:       time.Minute,
}

// Registry resolve (classe, tier) para uma Policy. Tabela de dois níveis com
// fallback explícito: tier+classe -> classe -> general.
type Registry struct {
	classes map[domain.ClassKey]domain.Policy
	tiers   map[domain.Tier]map[domain.ClassKey]domain.Policy
	tiered  bool
}

type RegistryOption func(*Registry)

// WithTiers liga/desliga as tabelas por tier (padrão: ligado).
func WithTiers(enabled bool) RegistryOption {
	return func(r *Registry) { r.tiered = enabled }
}

func NewRegistry(set domain.PolicySet, opts ...RegistryOption) *Registry {
	r := &Registry{
		classes: make(map[domain.ClassKey]domain.Policy, len(set.Classes)+1),
		tiers:   make(map[domain.Tier]map[domain.ClassKey]domain.Policy, len(set.Tiers)),
		tiered:  true,
	}
	for class, p := range set.Classes {
		p.Class = class
		r.classes[class] = p
	}
	if _, ok := r.classes[domain.ClassGeneral]; !ok {
		r.classes[domain.ClassGeneral] = fallbackGeneral
	}
	for tier, table := range set.Tiers {
		t := make(map[domain.ClassKey]domain.Policy, len(table))
		for class, p := range table {
			p.Class = class
			t[class] = p
		}
		r.tiers[tier] = t
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve nunca falha: classe desconhecida cai na política "general".
func (r *Registry) Resolve(class domain.ClassKey, tier domain.Tier) domain.Policy {
	if p, ok := r.lookup(class, tier); ok {
		return p
	}
	p, _ := r.lookup(domain.ClassGeneral, tier)
	return p
}

func (r *Registry) lookup(class domain.ClassKey, tier domain.Tier) (domain.Policy, bool) {
	if r.tiered && tier != domain.TierNone {
		if p, ok := r.tiers[tier][class]; ok {
			return p, true
		}
	}
	p, ok := r.classes[class]
	return p, ok
}

// Classes lista as classes configuradas (sem tier), ordenadas.
func (r *Registry) Classes() []domain.ClassKey {
	return slices.Sorted(maps.Keys(r.classes))
}

// Tiered informa se as tabelas por tier estão em uso.
func (r *Registry) Tiered() bool { return r.tiered }
