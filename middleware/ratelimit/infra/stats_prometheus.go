package infra

import (
	"context"
	"errors"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe ratelimit_decisions_total{class,outcome}.
// Identidade fica de fora dos labels (cardinalidade).
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limiter verdicts by endpoint class and outcome.",
	}, []string{"class", "outcome"})

	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		cv = existing
	}
	return &PrometheusStatsStore{decisions: cv}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	s.decisions.WithLabelValues(string(ev.Class), outcome).Inc()
	return nil
}

// MultiStats repassa cada evento para todos os stores.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RegisterConcurrencyMetrics expõe a ocupação do pool e o total de
// rejeições. Collector já registrado (outro middleware no mesmo registry)
// é mantido.
func RegisterConcurrencyMetrics(reg prometheus.Registerer, pool *ChanPool, rejected func() int64) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ratelimit",
			Name:      "concurrency_in_flight",
			Help:      "Requests currently holding a concurrency slot.",
		}, func() float64 { return float64(pool.InUse()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "concurrency_rejected_total",
			Help:      "Requests rejected because no concurrency slot was free.",
		}, func() float64 { return float64(rejected()) }),
	}

	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
