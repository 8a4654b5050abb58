package builder

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
)

// Config follows the teacher's preconf/miner_config.go shape.
type Config struct {
	BundlerPrivateKey *ecdsa.PrivateKey
	ChainID           *big.Int
	BatchSize         int
	BatchTimeoutMs    uint64

	KafkaBrokers   []string
	BundleTopic    string
	UserOpTopic    string
	AuditTopic     string
	GroupID        string
}

// DefaultConfig matches the topic names used across the rest of the
// pipeline (internal/ingress, internal/mempool).
var DefaultConfig = Config{
	BundleTopic: "tips-ingress",
	UserOpTopic: "tips-user-operations",
	AuditTopic:  "tips-audit-events",
	GroupID:     "tips-builder",
}

func (c Config) String() string {
	return fmt.Sprintf("builder{chainID=%s batchSize=%d batchTimeoutMs=%d}", c.ChainID, c.BatchSize, c.BatchTimeoutMs)
}
