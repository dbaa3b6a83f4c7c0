package domain

import "time"

// ClassKey identifica a classe de endpoint (o "balde" de política).
type ClassKey string

const (
	ClassDescription ClassKey = "description"
	ClassVocabulary  ClassKey = "vocabulary"
	ClassAuth        ClassKey = "auth"
	ClassGeneral     ClassKey = "general"
)

// Tier é o plano da conta que seleciona uma tabela alternativa de políticas.
type Tier string

const (
	TierNone       Tier = ""
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Policy é a cota de uma classe. Imutável depois do start.
type Policy struct {
	Class       ClassKey
	MaxRequests int
	Window      time.Duration
	// Block é o tempo de "castigo" depois que a cota estoura.
	Block time.Duration
}

// PolicySet é a configuração completa: políticas por classe e, opcionalmente,
// sobrescritas por tier. Adicionar um tier é mudança de dado, não de código.
type PolicySet struct {
	Classes map[ClassKey]Policy
	Tiers   map[Tier]map[ClassKey]Policy
}

// DefaultPolicySet devolve a tabela padrão usada quando nenhum arquivo de
// políticas é informado.
func DefaultPolicySet() PolicySet {
	return PolicySet{
		Classes: map[ClassKey]Policy{
			ClassDescription: {Class: ClassDescription, MaxRequests: 10, Window: time.Minute, Block: 5 * time.Minute},
			ClassVocabulary:  {Class: ClassVocabulary, MaxRequests: 50, Window: time.Minute, Block: 2 * time.Minute},
			ClassAuth:        {Class: ClassAuth, MaxRequests: 5, Window: 15 * time.Minute, Block: 15 * time.Minute},
			ClassGeneral:     {Class: ClassGeneral, MaxRequests: 100, Window: time.Minute, Block: time.Minute},
		},
		Tiers: map[Tier]map[ClassKey]Policy{
			TierFree: {
				ClassDescription: {Class: ClassDescription, MaxRequests: 10, Window: time.Minute, Block: 5 * time.Minute},
				ClassVocabulary:  {Class: ClassVocabulary, MaxRequests: 30, Window: time.Minute, Block: 2 * time.Minute},
			},
			TierPro: {
				ClassDescription: {Class: ClassDescription, MaxRequests: 100, Window: time.Minute, Block: time.Minute},
				ClassVocabulary:  {Class: ClassVocabulary, MaxRequests: 300, Window: time.Minute, Block: time.Minute},
				ClassGeneral:     {Class: ClassGeneral, MaxRequests: 500, Window: time.Minute, Block: time.Minute},
			},
			// "ilimitado" na prática: cota enorme com janela curta, sem bypass especial.
			TierEnterprise: {
				ClassDescription: unlimited(ClassDescription),
				ClassVocabulary:  unlimited(ClassVocabulary),
				ClassAuth:        unlimited(ClassAuth),
				ClassGeneral:     unlimited(ClassGeneral),
			},
		},
	}
}

func unlimited(class ClassKey) Policy {
	return Policy{Class: class, MaxRequests: 1_000_000, Window: time.Second, Block: time.Second}
}
