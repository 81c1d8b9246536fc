package ping

import (
	"context"
	"time"

	"yqpoint-system/internal/global/response"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const version = "1.0.0"

// Checker 检查依赖的存储是否可用，Redis 可以不配置
type Checker struct {
	DB    *gorm.DB
	Redis *goredis.Client
}

type Status struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (ch *Checker) Check(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := Status{Database: "ok", Redis: "disabled"}
	sqlDB, err := ch.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status.Database = "down"
		return status, err
	}
	if ch.Redis != nil {
		if err := ch.Redis.Ping(ctx).Err(); err != nil {
			status.Redis = "down"
			return status, err
		}
		status.Redis = "ok"
	}
	return status, nil
}

func Ping(c *gin.Context) {
	response.Success(c, map[string]any{
		"message": "pong",
		"version": version,
	})
}

func Health(c *gin.Context) {
	status, err := checker.Check(c.Request.Context())
	if err != nil {
		log.Error("健康检查失败", "error", err, "database", status.Database, "redis", status.Redis)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	response.Success(c, status)
}
