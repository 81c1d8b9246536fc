package transfer

import (
	"log/slog"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/storage"
)

var (
	log *slog.Logger
	svc *Service
)

type ModuleTransfer struct{}

func (p *ModuleTransfer) GetName() string {
	return "Transfer"
}

func (p *ModuleTransfer) Init() {
	log = logger.New("Transfer")
	svc = NewService(database.DB, lock.Default, notify.Default, storage.Default, log)
}
