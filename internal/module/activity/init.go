package activity

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

type ModuleActivity struct{}

func (p *ModuleActivity) GetName() string {
	return "Activity"
}

func (p *ModuleActivity) Init() {
	log = logger.New("Activity")
	svc = NewService(database.DB, lock.Default, notify.Default, log)
}
