package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier 以 JSON 形式 PUBLISH 到频道，由通知服务订阅落库
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, events ...Event) error {
	pipe := n.client.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		pipe.Publish(ctx, n.channel, payload)
	}
	_, err := pipe.Exec(ctx)
	return err
}
