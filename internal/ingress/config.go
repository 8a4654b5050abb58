package ingress

import (
	"fmt"
	"time"
)

// Config mirrors the shape of the teacher's preconf/tx_pool_config.go:
// a flat struct, a package-level default, and a String() method used for
// startup logging.
type Config struct {
	BindAddr              string
	MempoolRPCURL         string
	DualWriteMempool      bool
	IngressTopic          string
	AuditTopic            string
	UserOpsTopic          string
	SendTxLifetime        time.Duration
	KafkaBrokers          []string
	UserOpDedupTTLEntries int
}

// DefaultConfig matches spec.md §6's documented defaults.
var DefaultConfig = Config{
	BindAddr:              ":8545",
	IngressTopic:          "tips-ingress",
	AuditTopic:            "tips-audit",
	UserOpsTopic:          "tips-user-operations",
	SendTxLifetime:        10800 * time.Second,
	UserOpDedupTTLEntries: 10000,
}

func (c Config) String() string {
	return fmt.Sprintf("ingress{bind=%s ingressTopic=%s auditTopic=%s dualWrite=%t lifetime=%s}",
		c.BindAddr, c.IngressTopic, c.AuditTopic, c.DualWriteMempool, c.SendTxLifetime)
}
