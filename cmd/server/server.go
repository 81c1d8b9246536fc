package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/httpclient"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/middleware"
	"yqpoint-system/internal/global/notify"
	internalOtel "yqpoint-system/internal/global/otel"
	"yqpoint-system/internal/global/redis"
	"yqpoint-system/internal/global/sentry"
	"yqpoint-system/internal/global/storage"
	"yqpoint-system/internal/module"
	"yqpoint-system/tools"

	"github.com/gin-gonic/gin"
)

var log *slog.Logger

func Init() {
	config.Init()
	log = logger.New("Server")

	if err := sentry.Init(); err != nil {
		log.Error("Failed to init sentry", "error", err)
	}

	if config.Get().OTel.Enable {
		log.Info("OTel Enabled")
		internalOtel.Init()
	}

	database.Init()
	httpclient.Init()
	storage.Init()

	// 未配置 Redis 时锁与通知都退化为单机实现
	if config.Get().Redis.Host != "" {
		redis.Init()
	}
	lock.Init(redis.Client, logger.New("Lock"))
	notify.Init(redis.Client, httpclient.Client)

	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init()
	}
}

func Run() {
	defer shutdown()

	gin.SetMode(string(config.Get().Mode))
	r := gin.New()

	r.Use(sentry.Middleware())
	r.Use(middleware.SentryEnrichIP())
	switch config.Get().Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())

	if config.Get().OTel.Enable {
		r.Use(middleware.Trace())
	}

	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Router: %s", m.GetName()))
		m.InitRouter(r.Group("/" + config.Get().Prefix))
	}
	err := r.Run(config.Get().Host + ":" + config.Get().Port)
	tools.PanicOnErr(err)
}

func shutdown() {
	sentry.Flush(2 * time.Second)
	if config.Get().OTel.Enable {
		if err := internalOtel.Shutdown(context.Background()); err != nil {
			log.Error("Failed to shutdown TracerProvider", "error", err)
		}
	}
}
