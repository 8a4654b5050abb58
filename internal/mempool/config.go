package mempool

import (
	"fmt"
	"math/big"
)

// Config follows the teacher's preconf/tx_pool_config.go shape.
type Config struct {
	KafkaBrokers             []string
	Topic                    string
	AuditTopic               string
	GroupID                  string
	MinMaxFeePerGas          *big.Int
	ReplacementIncreasePercent uint64 // default 10, spec.md §4.F
}

var DefaultConfig = Config{
	Topic:                      "tips-user-operations",
	AuditTopic:                 "tips-audit-events",
	GroupID:                    "tips-mempool-engine",
	MinMaxFeePerGas:            big.NewInt(0),
	ReplacementIncreasePercent: 10,
}

func (c Config) String() string {
	return fmt.Sprintf("mempool{topic=%s group=%s replacementIncrease=%d%%}",
		c.Topic, c.GroupID, c.ReplacementIncreasePercent)
}
