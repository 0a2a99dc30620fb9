package publisher

import (
	"context"
	"encoding/json"
	"time"

	"wisefido-vision/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPublisher 将事件汇总发布到 Redis Streams，供下游服务消费
type RedisPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewRedisPublisher 创建 Redis Streams 发布器
func NewRedisPublisher(client *redis.Client, stream string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// PublishEvent 发布一条事件汇总（XADD，JSON 负载）
func (p *RedisPublisher) PublishEvent(ctx context.Context, summary *models.EventSummary) (string, error) {
	jsonBytes, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(jsonBytes),
			"source_id": summary.SourceID,
			"timestamp": time.Now().Unix(),
		},
	}).Result()

	if err != nil {
		p.logger.Error("Failed to publish event to stream",
			zap.String("stream", p.stream),
			zap.String("source_id", summary.SourceID),
			zap.Error(err),
		)
		return "", err
	}

	return id, nil
}
