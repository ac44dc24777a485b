package app

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered with the same registry CometBFT serves, so they
// show up under the node's /metrics endpoint.
type Metrics struct {
	txResults   *prometheus.CounterVec
	events      *prometheus.CounterVec
	blockTxs    prometheus.Histogram
	height      prometheus.Gauge
	checkReject prometheus.Counter
}

func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)
	return &Metrics{
		txResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gov",
			Name:      "tx_results_total",
			Help:      "Executed transactions by type and result code",
		}, []string{"type", "code"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gov",
			Name:      "events_total",
			Help:      "Governance events emitted by type",
		}, []string{"type"}),
		blockTxs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gov",
			Name:      "block_txs",
			Help:      "Number of transactions per finalized block",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		height: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gov",
			Name:      "committed_height",
			Help:      "Last committed state version",
		}),
		checkReject: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gov",
			Name:      "check_tx_rejected_total",
			Help:      "Transactions rejected by CheckTx",
		}),
	}
}

func (m *Metrics) observeTx(txType string, code uint32) {
	m.txResults.WithLabelValues(txType, strconv.FormatUint(uint64(code), 10)).Inc()
}
