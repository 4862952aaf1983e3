package txpool

import "github.com/ethereum/go-ethereum/metrics"

// Metric names mirror the METRIC-tagged log lines of the original
// MemoryStorage (pendingTxs, sealedTxs, StatTPS) but as registered
// gauges/meters instead of one-shot log statements.
var (
	pendingTxsGauge  = metrics.NewRegisteredGauge("txpool/pending", nil)
	sealedTxsGauge   = metrics.NewRegisteredGauge("txpool/sealed", nil)
	invalidTxsGauge  = metrics.NewRegisteredGauge("txpool/invalid", nil)
	tpsMeter         = metrics.NewRegisteredMeter("txpool/tps", nil)
	rejectedCounter  = metrics.NewRegisteredCounter("txpool/rejected", nil)
	committedCounter = metrics.NewRegisteredCounter("txpool/committed", nil)
)
