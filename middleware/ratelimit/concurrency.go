package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter sugerido a quem foi rejeitado (padrão 1s).
	RetryAfter time.Duration

	// Metrics, se informado, recebe ratelimit_concurrency_in_flight e
	// ratelimit_concurrency_rejected_total.
	Metrics prometheus.Registerer
	Logger  *slog.Logger
}

// ConcurrencyMiddleware limita requests em voo. Max <= 0 desliga.
// A rejeição segue o mesmo contrato JSON das negações por cota.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pool := infra.NewChanPool(opts.Max)
	svc := &application.ConcurrencyService{
		Pool:           pool,
		AcquireTimeout: opts.AcquireTimeout,
	}
	if opts.Metrics != nil {
		if err := infra.RegisterConcurrencyMetrics(opts.Metrics, pool, svc.Rejected); err != nil {
			opts.Logger.Warn("concurrency metrics not registered", "error", err)
		}
	}

	secs := retrySeconds(opts.RetryAfter)
	body := denialBody{
		Error:      http.StatusText(opts.RejectStatus),
		Message:    fmt.Sprintf("Too many concurrent requests. Try again in %d seconds.", secs),
		RetryAfter: secs,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Logger.Debug("concurrency limit reached", "path", r.URL.Path, "max", opts.Max)
				w.Header().Set("Retry-After", formatInt(secs))
				writeJSON(w, opts.RejectStatus, body)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
