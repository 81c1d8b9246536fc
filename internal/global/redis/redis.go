package redis

import (
	"context"
	"fmt"
	"time"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/sentry/tracing"
	"yqpoint-system/tools"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

func Init() {
	cfg := config.Get().Redis
	Client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if tracing.IsEnabled() {
		Client.AddHook(tracing.NewRedisHook())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tools.PanicOnErr(Client.Ping(ctx).Err())
}
