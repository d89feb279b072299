package cache

import "github.com/prometheus/client_golang/prometheus"

// cacheOps counts store operations by op (save/get/load/clear) and result.
var cacheOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shop_cache_ops_total",
		Help: "Storefront cache operations by outcome.",
	},
	[]string{"op", "result"},
)

func init() {
	prometheus.MustRegister(cacheOps)
}

func observe(op, result string) {
	cacheOps.WithLabelValues(op, result).Inc()
}
