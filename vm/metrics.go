package vm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes.
const (
	outcomeOk           = "ok"
	outcomeErr          = "err"
	outcomeRuntimeError = "runtime_error"
)

type metrics struct {
	calls  *prometheus.CounterVec
	blocks prometheus.Counter
}

// newMetrics creates the engine collectors and registers them with reg
// when it is not nil.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simnet",
			Name:      "contract_calls_total",
			Help:      "Contract calls by function and outcome.",
		}, []string{"function", "outcome"}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simnet",
			Name:      "blocks_mined_total",
			Help:      "Blocks mined by the session.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.calls, m.blocks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
