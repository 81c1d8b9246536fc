package ping

import (
	"log/slog"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/redis"
)

var (
	log     *slog.Logger
	checker *Checker
)

type ModulePing struct{}

func (p *ModulePing) GetName() string {
	return "Ping"
}

func (p *ModulePing) Init() {
	log = logger.New("Ping")
	checker = &Checker{DB: database.DB, Redis: redis.Client}
}
