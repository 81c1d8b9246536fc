package module

import (
	"yqpoint-system/internal/module/account"
	"yqpoint-system/internal/module/activity"
	"yqpoint-system/internal/module/distribution"
	"yqpoint-system/internal/module/ping"
	"yqpoint-system/internal/module/position"
	"yqpoint-system/internal/module/transfer"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init()
	InitRouter(r *gin.RouterGroup)
}

var Modules []Module

func registerModule(m []Module) {
	Modules = append(Modules, m...)
}

func init() {
	// Register your module here
	registerModule([]Module{
		&ping.ModulePing{},
		&account.ModuleAccount{},
		&position.ModulePosition{},
		&transfer.ModuleTransfer{},
		&distribution.ModuleDistribution{},
		&activity.ModuleActivity{},
	})
}
