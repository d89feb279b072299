package inflight

import "github.com/prometheus/client_golang/prometheus"

var calls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shop_inflight_calls_total",
		Help: "Deduplicated fetch calls by family: flights started, callers that joined one, and waits abandoned by the caller.",
	},
	[]string{"family", "result"},
)

func init() {
	prometheus.MustRegister(calls)
}

func observe(family, result string) {
	calls.WithLabelValues(family, result).Inc()
}
