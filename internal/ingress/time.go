package ingress

import "time"

// currentUnixTime is the single seam in this package that reads wall
// time, so tests can exercise the timestamp-window checks deterministically.
var currentUnixTime = func() uint64 { return uint64(time.Now().Unix()) }
