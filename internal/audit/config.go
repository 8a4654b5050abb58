package audit

import "fmt"

// Config follows the teacher's preconf/tx_pool_config.go shape.
type Config struct {
	KafkaBrokers []string
	Topic        string
	GroupID      string
	S3Bucket     string
	S3Prefix     string
}

var DefaultConfig = Config{
	Topic:   "tips-audit-events",
	GroupID: "tips-archiver",
}

func (c Config) String() string {
	return fmt.Sprintf("audit{topic=%s group=%s bucket=%s prefix=%s}", c.Topic, c.GroupID, c.S3Bucket, c.S3Prefix)
}
