package ingress

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

// Metrics follow the teacher's preconf/metrics.go idiom: named registered
// gauges/meters/timers plus a helper function per hot path.
var (
	validateTxTimer      = metrics.NewRegisteredTimer("ingress/validate/tx", nil)
	validateBundleTimer  = metrics.NewRegisteredTimer("ingress/validate/bundle", nil)
	validateUserOpTimer  = metrics.NewRegisteredTimer("ingress/validate/userop", nil)
	rejectedTxMeter      = metrics.NewRegisteredMeter("ingress/rejected/tx", nil)
	rejectedBundleMeter  = metrics.NewRegisteredMeter("ingress/rejected/bundle", nil)
	rejectedUserOpMeter  = metrics.NewRegisteredMeter("ingress/rejected/userop", nil)
	publishRetryMeter    = metrics.NewRegisteredMeter("ingress/publish/retries", nil)
	publishFailureMeter  = metrics.NewRegisteredMeter("ingress/publish/failures", nil)
	dualWriteFailureMeter = metrics.NewRegisteredMeter("ingress/dualwrite/failures", nil)
)

func metricsValidateTxCost(start time.Time) { validateTxTimer.UpdateSince(start) }
func metricsValidateBundleCost(start time.Time) { validateBundleTimer.UpdateSince(start) }
func metricsValidateUserOpCost(start time.Time) { validateUserOpTimer.UpdateSince(start) }
