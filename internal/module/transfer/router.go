package transfer

import (
	"yqpoint-system/internal/global/jwt"
	"yqpoint-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (p *ModuleTransfer) InitRouter(r *gin.RouterGroup) {
	transferGroup := r.Group("/transfer")

	transferGroup.Use(middleware.Auth(jwt.RolePerson))
	{
		transferGroup.GET("/list", ListRecords)
		transferGroup.GET("/export", ExportRecords)
		transferGroup.POST("/propose", ProposeTransfer)
		transferGroup.POST("/:id/settle", SettleTransfer)
		transferGroup.POST("/:id/cancel", CancelTransfer)
	}
}
