package usage

import (
	stderrors "errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/subagent-go/internal/message"
)

type metricsProvider struct {
	tokens *prometheus.CounterVec
	cost   *prometheus.CounterVec
	turns  *prometheus.CounterVec
	tasks  *prometheus.CounterVec
}

// newMetricsProvider registers the ledger counters with registry. Ledgers
// sharing a registry share the counters. A nil registry disables metrics.
func newMetricsProvider(registry prometheus.Registerer) (*metricsProvider, error) {
	if registry == nil {
		return nil, nil
	}

	provider := &metricsProvider{
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subagent_tokens_total",
				Help: "Total tokens consumed by delegated tasks by model and kind",
			},
			[]string{"model", "kind"},
		),
		cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subagent_cost_total",
				Help: "Total cost of delegated tasks by model",
			},
			[]string{"model"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subagent_turns_total",
				Help: "Total generated turns of delegated tasks by model",
			},
			[]string{"model"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subagent_tasks_total",
				Help: "Total delegated tasks folded into the ledger by model and outcome",
			},
			[]string{"model", "outcome"},
		),
	}

	for _, vec := range []**prometheus.CounterVec{&provider.tokens, &provider.cost, &provider.turns, &provider.tasks} {
		registered, err := register(registry, *vec)
		if err != nil {
			return nil, err
		}

		*vec = registered
	}

	return provider, nil
}

// register adds vec to registry, or returns the counter already registered
// under the same descriptor.
func register(registry prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := registry.Register(vec)
	if err == nil {
		return vec, nil
	}

	if are, ok := stderrors.AsType[prometheus.AlreadyRegisteredError](err); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("register usage metrics: %w", err)
}

func (p *metricsProvider) Observe(model, outcome string, u message.Usage) {
	if p == nil {
		return
	}

	p.tokens.WithLabelValues(model, "input").Add(float64(u.Input))
	p.tokens.WithLabelValues(model, "output").Add(float64(u.Output))
	p.tokens.WithLabelValues(model, "cache_read").Add(float64(u.CacheRead))
	p.tokens.WithLabelValues(model, "cache_write").Add(float64(u.CacheWrite))
	p.cost.WithLabelValues(model).Add(u.Cost)
	p.turns.WithLabelValues(model).Add(float64(u.Turns))
	p.tasks.WithLabelValues(model, outcome).Inc()
}
