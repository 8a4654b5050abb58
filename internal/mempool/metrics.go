package mempool

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	poolSizeGauge     = metrics.NewRegisteredGauge("mempool/pool/size", nil)
	addedMeter        = metrics.NewRegisteredMeter("mempool/added", nil)
	replacedMeter     = metrics.NewRegisteredMeter("mempool/replaced", nil)
	removedMeter      = metrics.NewRegisteredMeter("mempool/removed", nil)
	rejectedMeter     = metrics.NewRegisteredMeter("mempool/rejected", nil)
	eventHandleTimer  = metrics.NewRegisteredTimer("mempool/event/handle", nil)
)

func metricsEventHandleCost(start time.Time) { eventHandleTimer.UpdateSince(start) }
