package domain

import (
	"context"
	"time"
)

// CounterRecord é o estado mutável por (identidade x classe).
// BlockedUntil zero significa "sem bloqueio".
type CounterRecord struct {
	Count           int64
	WindowStartedAt time.Time
	BlockedUntil    time.Time
}

// Blocked informa se o bloqueio ainda vale em now.
func (r CounterRecord) Blocked(now time.Time) bool {
	return !r.BlockedUntil.IsZero() && now.Before(r.BlockedUntil)
}

// WindowCount é o retorno do incremento: a contagem já incrementada e o
// início da janela a que ela pertence.
type WindowCount struct {
	Count           int64
	WindowStartedAt time.Time
}

// CounterStore guarda contadores e bloqueios por chave.
//
// Increment precisa ser atômico: dois chamadores concorrentes na mesma chave
// nunca observam o mesmo valor (sem perda de incremento).
// Implementações: redis (compartilhado entre instâncias) e memória (local).
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (WindowCount, error)
	GetBlock(ctx context.Context, key string) (until time.Time, blocked bool, err error)
	SetBlock(ctx context.Context, key string, until time.Time) error
	Reset(ctx context.Context, key string) error
	Status(ctx context.Context, key string) (CounterRecord, error)
}

// Clock permite simular o tempo em testes.
type Clock func() time.Time

// Now devolve time.Now quando o clock é nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// RecordSlack é a folga de retenção além de janela + bloqueio.
const RecordSlack = time.Minute
