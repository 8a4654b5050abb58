package orderpool

import "github.com/ethereum/go-ethereum/metrics"

var (
	bundlePoolSizeGauge = metrics.NewRegisteredGauge("orderpool/bundles/size", nil)
	userOpPoolSizeGauge = metrics.NewRegisteredGauge("orderpool/userops/size", nil)
)
