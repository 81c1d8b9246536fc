package position

import (
	"log/slog"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
)

var (
	log *slog.Logger
	svc *Service
)

type ModulePosition struct{}

func (p *ModulePosition) GetName() string {
	return "Position"
}

func (p *ModulePosition) Init() {
	log = logger.New("Position")
	svc = NewService(database.DB, lock.Default, notify.Default, log)
}
