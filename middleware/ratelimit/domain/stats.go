package domain

import (
	"context"
	"time"
)

// StatsEvent representa um veredito do limitador.
//
// Method/Path são strings genéricas e podem vir de web, gRPC, etc.
//
// Observação: cuidado com cardinalidade (ex.: salvar Identity/Path sem controle
// pode explodir o número de séries/chaves em Redis/Prometheus).
type StatsEvent struct {
	Identity Identity
	Class    ClassKey
	Allowed  bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas dos vereditos.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
