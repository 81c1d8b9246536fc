package distribution

import (
	"log/slog"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
)

var (
	log *slog.Logger
	svc *Service
)

type ModuleDistribution struct{}

func (p *ModuleDistribution) GetName() string {
	return "Distribution"
}

func (p *ModuleDistribution) Init() {
	log = logger.New("Distribution")
	svc = NewService(database.DB, lock.Default, log)
}
