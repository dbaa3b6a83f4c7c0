package application

import (
	"testing"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_ResolveKnownClass(t *testing.T) {
	r := NewRegistry(domain.DefaultPolicySet())

	p := r.Resolve(domain.ClassDescription, domain.TierNone)
	assert.Equal(t, domain.Policy{
		Class:       domain.ClassDescription,
		MaxRequests: 10,
		Window:      time.Minute,
		Block:       5 * time.Minute,
	}, p)
}

func TestRegistry_UnknownClassFallsBackToGeneral(t *testing.T) {
	r := NewRegistry(domain.DefaultPolicySet())

	p := r.Resolve("not-configured", domain.TierNone)
	assert.Equal(t, domain.ClassGeneral, p.Class)
	assert.Equal(t, 100, p.MaxRequests)
}

func TestRegistry_BuiltInGeneralWhenMissing(t *testing.T) {
	r := NewRegistry(domain.PolicySet{})

	p := r.Resolve(domain.ClassAuth, domain.TierNone)
	assert.Equal(t, fallbackGeneral, p)
	assert.Equal(t, []domain.ClassKey{domain.ClassGeneral}, r.Classes())
}

func TestRegistry_TierLookupWithFallback(t *testing.T) {
	r := NewRegistry(domain.DefaultPolicySet())

	assert.Equal(t, 100, r.Resolve(domain.ClassDescription, domain.TierPro).MaxRequests)
	// pro não define auth: cai na política sem tier
	assert.Equal(t, 5, r.Resolve(domain.ClassAuth, domain.TierPro).MaxRequests)
	// tier desconhecido: política sem tier
	assert.Equal(t, 10, r.Resolve(domain.ClassDescription, "platinum").MaxRequests)
	// classe desconhecida com tier: general do tier
	assert.Equal(t, 500, r.Resolve("exports", domain.TierPro).MaxRequests)
	assert.Equal(t, 1_000_000, r.Resolve(domain.ClassAuth, domain.TierEnterprise).MaxRequests)
}

func TestRegistry_TiersDisabled(t *testing.T) {
	r := NewRegistry(domain.DefaultPolicySet(), WithTiers(false))

	assert.False(t, r.Tiered())
	assert.Equal(t, 10, r.Resolve(domain.ClassDescription, domain.TierPro).MaxRequests)
}

func TestRegistry_ClassesSorted(t *testing.T) {
	r := NewRegistry(domain.DefaultPolicySet())

	assert.Equal(t, []domain.ClassKey{
		domain.ClassAuth,
		domain.ClassDescription,
		domain.ClassGeneral,
		domain.ClassVocabulary,
	}, r.Classes())
}
