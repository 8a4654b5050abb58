package builder

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	midpointInsertionsMeter = metrics.NewRegisteredMeter("builder/midpoint/insertions", nil)
	midpointStepTimer       = metrics.NewRegisteredTimer("builder/midpoint/step", nil)
)

func metricsMidpointStepCost(start time.Time) { midpointStepTimer.UpdateSince(start) }
