package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/san-kum/dynmap/internal/dynamo"
)

// Collector counts calls into user transition and Jacobian functions. It
// owns its registry so several collectors can coexist.
type Collector struct {
	registry *prometheus.Registry

	// Evaluations counts callback invocations by model and kind.
	Evaluations *prometheus.CounterVec

	// Failures counts callbacks that returned an error.
	Failures *prometheus.CounterVec

	// Orbits counts generated orbits by model and direction.
	Orbits *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynmap_evaluations_total",
				Help: "Map callback evaluations",
			},
			[]string{"model", "kind"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynmap_evaluation_failures_total",
				Help: "Map callback failures",
			},
			[]string{"model", "kind"},
		),
		Orbits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynmap_orbits_total",
				Help: "Generated orbits",
			},
			[]string{"model", "direction"},
		),
	}
	c.registry.MustRegister(c.Evaluations, c.Failures, c.Orbits)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Observer returns a [dynamo.Observer] that records under the given model
// label. It is safe for concurrent use.
func (c *Collector) Observer(model string) dynamo.Observer {
	return &modelObserver{
		evals:    c.Evaluations.MustCurryWith(prometheus.Labels{"model": model}),
		failures: c.Failures.MustCurryWith(prometheus.Labels{"model": model}),
	}
}

func (c *Collector) OrbitGenerated(model, direction string) {
	c.Orbits.WithLabelValues(model, direction).Inc()
}

type modelObserver struct {
	evals    *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func (o *modelObserver) OnEval(kind dynamo.EvalKind, err error) {
	o.evals.WithLabelValues(string(kind)).Inc()
	if err != nil {
		o.failures.WithLabelValues(string(kind)).Inc()
	}
}

// Summary renders every counter in g as "name{labels} value" lines, sorted.
func Summary(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}

	var lines []string
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labelString(m.GetLabel()), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
