package audit

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var (
	archivedMeter       = metrics.NewRegisteredMeter("audit/archived", nil)
	archiveFailureMeter = metrics.NewRegisteredMeter("audit/archive_failure", nil)
	putSkippedMeter     = metrics.NewRegisteredMeter("audit/put_skipped", nil) // ETag matched, PUT elided
	publishRetryMeter   = metrics.NewRegisteredMeter("audit/publish/retry", nil)
	publishFailureMeter = metrics.NewRegisteredMeter("audit/publish/failure", nil)
	archiveStepTimer    = metrics.NewRegisteredTimer("audit/archive/step", nil)
)

func metricsArchiveStepCost(start time.Time) { archiveStepTimer.UpdateSince(start) }
