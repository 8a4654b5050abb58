package simulator

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	queueDepthGauge    = metrics.NewRegisteredGauge("simulator/queue/depth", nil)
	simulatedMeter     = metrics.NewRegisteredMeter("simulator/simulated", nil)
	staleDroppedMeter  = metrics.NewRegisteredMeter("simulator/stale_dropped", nil)
	failedMeter        = metrics.NewRegisteredMeter("simulator/failed", nil)
	simulationTimer    = metrics.NewRegisteredTimer("simulator/simulate", nil)
)

func metricsSimulationCost(start time.Time) { simulationTimer.UpdateSince(start) }
