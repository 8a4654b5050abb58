package simulator

import "fmt"

// Config follows the teacher's preconf/tx_pool_config.go shape.
type Config struct {
	KafkaBrokers         []string
	RequestTopic         string
	ResultTopic          string
	GroupID              string
	QueueCapacity        int // spec.md §4.I: bounded MPMC channel, capacity 1000
	MaxConcurrentSims    int // spec.md §4.I: N, default 10
	BlockTimeMillis      uint64
}

var DefaultConfig = Config{
	RequestTopic:      "tips-simulation-requests",
	ResultTopic:       "tips-simulation-results",
	GroupID:           "tips-simulator",
	QueueCapacity:     1000,
	MaxConcurrentSims: 10,
	BlockTimeMillis:   2000,
}

func (c Config) String() string {
	return fmt.Sprintf("simulator{requestTopic=%s resultTopic=%s queueCap=%d workers=%d}",
		c.RequestTopic, c.ResultTopic, c.QueueCapacity, c.MaxConcurrentSims)
}
