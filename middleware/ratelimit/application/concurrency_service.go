package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o teto de requisições em voo, com timeout de
// aquisição, sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration

	rejected atomic.Int64
}

// Acquire tenta adquirir uma vaga.
//   - `AcquireTimeout <= 0`: espera até o ctx cancelar.
//   - `AcquireTimeout > 0`: espera no máximo o timeout.
//
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s *ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(ctx)
	if !ok {
		s.rejected.Add(1)
	}
	return release, ok
}

// Rejected devolve quantas aquisições falharam.
func (s *ConcurrencyService) Rejected() int64 { return s.rejected.Load() }
