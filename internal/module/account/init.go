package account

import (
	"log/slog"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/logger"

	"gorm.io/gorm"
)

var (
	log *slog.Logger
	db  *gorm.DB
)

type ModuleAccount struct{}

func (u *ModuleAccount) GetName() string {
	return "Account"
}

func (u *ModuleAccount) Init() {
	log = logger.New("Account")
	db = database.DB
}
