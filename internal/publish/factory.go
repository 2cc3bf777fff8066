package publish

import (
	"fmt"
	"strings"

	"github.com/rbramwell/halin/internal/config"
)

// Backend names accepted in publish.type.
const (
	TypeNATS   = "nats"
	TypeRedis  = "redis"
	TypeKafka  = "kafka"
	TypeMemory = "memory"
)

// NewPublisher creates the Publisher selected by cfg.Type.
func NewPublisher(cfg config.PublishConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Type) {
	case TypeNATS:
		return newNATSPublisher(cfg.URL, cfg.Username, cfg.Password)
	case TypeRedis:
		return newRedisPublisher(cfg.URL, cfg.Password, cfg.RedisDB)
	case TypeKafka:
		return newKafkaPublisher(cfg.KafkaBrokers)
	case TypeMemory:
		return NewMemoryPublisher(), nil
	case "":
		return nil, fmt.Errorf("publishing is disabled (publish.type is empty)")
	default:
		return nil, fmt.Errorf("unsupported publish type: %s (supported: nats, redis, kafka, memory)", cfg.Type)
	}
}
