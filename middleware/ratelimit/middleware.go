package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
)

type Options struct {
	Store    domain.CounterStore
	Registry *application.Registry
	Stats    domain.StatsStore

	// Class fixa a classe para todas as rotas envolvidas; senão ClassFn decide
	// (padrão: tudo "general").
	Class   domain.ClassKey
	ClassFn ClassFunc

	AttributesFn AttributesFunc
	UserHeader   string
	TierHeader   string

	Bypass bool
	Clock  domain.Clock
	Logger *slog.Logger
}

// denialBody é o contrato do corpo da resposta 429.
type denialBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AttributesFn == nil {
		opts.AttributesFn = DefaultAttributesFunc(opts.UserHeader, opts.TierHeader)
	}
	switch {
	case opts.Class != "":
		opts.ClassFn = StaticClass(opts.Class)
	case opts.ClassFn == nil:
		opts.ClassFn = StaticClass(domain.ClassGeneral)
	}

	svc := application.Service{
		Registry: opts.Registry,
		Store:    opts.Store,
		Bypass:   opts.Bypass,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := opts.AttributesFn(r)
			class := opts.ClassFn(r)

			id, v := svc.Decide(r.Context(), attrs, class)
			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Identity: id,
					Class:    class,
					Allowed:  v.Allowed,
					Method:   r.Method,
					Path:     r.URL.Path,
					At:       opts.Clock.Now(),
				})
				if err != nil {
					opts.Logger.Debug("rate limit stats not recorded", "error", err)
				}
			}

			setRateLimitHeaders(w.Header(), v)
			if !v.Allowed {
				writeDenial(w, class, v)
				return
			}

			// headers já estão no ResponseWriter antes do handler escrever
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(h http.Header, v domain.Verdict) {
	h.Set("X-RateLimit-Limit", formatInt(v.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(v.Remaining))
	h.Set("X-RateLimit-Reset", formatInt64(v.ResetAt.Unix()))
}

func writeDenial(w http.ResponseWriter, class domain.ClassKey, v domain.Verdict) {
	secs := retrySeconds(v.RetryAfter)

	w.Header().Set("Retry-After", formatInt(secs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(denialBody{
		Error:      http.StatusText(http.StatusTooManyRequests),
		Message:    fmt.Sprintf("Rate limit exceeded for %s requests. Try again in %d seconds.", class, secs),
		RetryAfter: secs,
	})
}
