package mempool

import "time"

func timeoutForCI() time.Duration { return 2 * time.Second }
func pollInterval() time.Duration { return 10 * time.Millisecond }
